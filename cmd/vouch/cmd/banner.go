package cmd

import (
	"fmt"
)

const banner = `
 __      __               _
 \ \    / /              | |
  \ \  / /__  _   _  ___ | |__
   \ \/ / _ \| | | |/ __|| '_ \
    \  / (_) | |_| | (__ | | | |
     \/ \___/ \__,_|\___||_| |_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Peer-Approval Authentication Service - Version %s\x1b[0m\n\n", Version)
}
