// Package protocol implements the JSON message format spoken over the
// device websocket.
//
// # Inbound
//
// The device pushes state as flat JSON objects. Each object may carry any
// subset of keys and the client applies them in one pass:
//
//	{"app_name":"ESPURNA","app_version":"1.12.3","hostname":"KITCHEN",
//	 "relayStatus":[true,false],"maxNetworks":5,"message":8}
//
// DecodeUpdate keeps numbers as json.Number so integers such as relay ids
// and uptime seconds are not rounded through float64.
//
// The "message" key carries a numeric id resolved with MessageText.
//
// # Outbound
//
// Two shapes are sent to the device. A save carries the whole form:
//
//	{"config":[{"name":"hostname","value":"KITCHEN"},{"name":"ssid","value":"home"}]}
//
// Every other request is an action with an optional payload:
//
//	{"action":"relay","data":{"id":0,"status":1}}
//	{"action":"color","data":{"hsv":"120,50,100"}}
//	{"action":"restore","data":{...backup object...}}
//
// The Build* helpers produce these frames. DecodeCommand and Dispatcher
// parse them back, which the emulated device uses.
package protocol
