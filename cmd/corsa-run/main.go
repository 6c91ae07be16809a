// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "corsa-run",
		Usage:     "Corsa Execution Engine Driver",
		Copyright: "(c) 2025 The Corsa Authors",
		Flags:     []cli.Flag{},
		Commands: []*cli.Command{
			&RunCmd,
			&ExecuteCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
