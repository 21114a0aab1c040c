package root

import (
	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/bootstrap"
	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/domains"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(domains.Command())
}
