// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfcstress drives the lfc containers with concurrent producers
// and consumers and verifies what comes out.
package main

import (
	"fmt"
	"os"

	"code.hybscloud.com/lfc/cmd/lfcstress/commands"
)

func main() {
	if err := commands.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
