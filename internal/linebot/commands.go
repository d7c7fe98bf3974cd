package linebot

import "strings"

type Command string

const (
	CommandStatus      Command = "status"
	CommandAlert       Command = "alert"
	CommandTemperature Command = "temperature"
	CommandHelp        Command = "help"
	CommandPower       Command = "power"
	CommandServers     Command = "servers"
	CommandPredict     Command = "predict"
	CommandGreeting    Command = "greeting"
)

// Keywords are matched as substrings in this order, so "server status"
// resolves to status before servers.
var keywords = []struct {
	command Command
	words   []string
}{
	{CommandStatus, []string{"status", "สถานะ"}},
	{CommandAlert, []string{"alert", "แจ้งเตือน"}},
	{CommandTemperature, []string{"temperature", "อุณหภูมิ"}},
	{CommandHelp, []string{"help", "ช่วยเหลือ"}},
	{CommandPower, []string{"power", "พลังงาน"}},
	{CommandServers, []string{"servers", "เซิร์ฟเวอร์"}},
	{CommandPredict, []string{"predict", "ทำนาย"}},
}

func ParseCommand(text string) Command {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(text, w) {
				return k.command
			}
		}
	}
	return CommandGreeting
}
