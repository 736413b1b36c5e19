package urls

// Reference URLs shown in help text and troubleshooting tips

// Documentation is the project README.
const Documentation = "https://github.com/muurk/echoserver#readme"

// WebSocketProtocol is RFC 6455, the WebSocket protocol.
const WebSocketProtocol = "https://www.rfc-editor.org/rfc/rfc6455"

// CloseCodes lists the WebSocket close status codes a session can end with.
const CloseCodes = "https://www.rfc-editor.org/rfc/rfc6455#section-7.4.1"

// MulticastDNS is RFC 6762, used when advertising and discovering servers.
const MulticastDNS = "https://www.rfc-editor.org/rfc/rfc6762"
