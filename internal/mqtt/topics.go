package mqtt

import (
	"strconv"
	"strings"
)

// Topics builds the topic names shared with the controllers.
//
//	{prefix}/device/{mac}/status
//	{prefix}/device/{mac}/appliance/{slot}/state
//	{prefix}/server/status
//
// {mac} is the lower-case address without separators.
type Topics struct {
	Prefix string
}

func (t Topics) DeviceStatus(mac string) string {
	return t.Prefix + "/device/" + topicMAC(mac) + "/status"
}

func (t Topics) ApplianceState(mac string, slot int) string {
	return t.Prefix + "/device/" + topicMAC(mac) + "/appliance/" + strconv.Itoa(slot) + "/state"
}

func (t Topics) ServerStatus() string {
	return t.Prefix + "/server/status"
}

func topicMAC(mac string) string {
	return strings.ToLower(strings.ReplaceAll(mac, ":", ""))
}
