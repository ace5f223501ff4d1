package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[GenerateCodeMessage] = (*GenerateCodeCommand)(nil)
	_ gocmd.Commander[ConnectMessage]      = (*ConnectCommand)(nil)
	_ gocmd.Commander[ForceRepairMessage]  = (*ForceRepairCommand)(nil)
	_ gocmd.Commander[DisconnectMessage]   = (*DisconnectCommand)(nil)
	_ gocmd.Commander[DeleteMessage]       = (*DeleteCommand)(nil)
)
