package cmd

import (
	"fmt"
	"runtime"

	"github.com/WuKongIM/wkframe/version"
	"github.com/spf13/cobra"
)

type versionCMD struct {
}

func newVersionCMD() *versionCMD {
	return &versionCMD{}
}

func (v *versionCMD) CMD() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the wkframe version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wkframe %s (%s %s %s) %s\n", version.Version, version.Commit, version.CommitDate, version.TreeState, runtime.Version())
		},
	}
}
