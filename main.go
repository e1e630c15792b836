package main

import (
	"os"
	"runtime/debug"

	"github.com/greenpoints/greenledger/cmd"
	"github.com/greenpoints/greenledger/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("LEDGER NODE CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(2)
		}
	}()

	os.Exit(cmd.Execute())
}
