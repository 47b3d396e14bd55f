// Command maany-mpc is a demo host for this module's external surface.
//
// Grounded on the teacher's cmd/cbmpc-go/main.go (which opens the library,
// prints its version, and stops) generalized into a real cobra-based CLI:
// dkg/sign/refresh/backup subcommands each drive two in-process sessions
// through the pump loops in pump.go, the way a real host would drive two
// network peers, and exercise pkg/tss/abi's handle surface rather than
// pkg/tss directly, so the demo doubles as a worked example of embedding
// this module from outside its own package tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

func main() {
	root := &cobra.Command{
		Use:   "maany-mpc",
		Short: "Demo host for the two-party threshold ECDSA engine",
	}

	major, minor, patch := abi.Version()
	root.Long = fmt.Sprintf("maany-mpc: demo CLI over the maany-mpc-core ABI surface (v%d.%d.%d)", major, minor, patch)

	root.AddCommand(newDKGCmd())
	root.AddCommand(newSignCmd())
	root.AddCommand(newRefreshCmd())
	root.AddCommand(newBackupCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
