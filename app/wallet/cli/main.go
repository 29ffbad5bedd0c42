// This program signs and sends transactions to a ledger node.
package main

import "github.com/ardanlabs/scalefree/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
