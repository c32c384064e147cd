//go:build windows

package process

import "os"

func killSelf() {
	os.Exit(-1073741819) // 0xC0000005, what an access violation reports
}
