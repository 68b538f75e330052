package call

// Outbound signaling frames. Every frame is a flat JSON envelope whose type
// field selects the handler on the far side.

type callRequest struct {
	Type         string `json:"type"`
	ToUserId     int    `json:"to_user_id"`
	CallerName   string `json:"caller_name"`
	CallerAvatar string `json:"caller_avatar,omitempty"`
}

type callAccept struct {
	Type           string `json:"type"`
	CallerId       int    `json:"caller_id"`
	ReceiverName   string `json:"receiver_name"`
	ReceiverAvatar string `json:"receiver_avatar,omitempty"`
}

type callReject struct {
	Type     string `json:"type"`
	CallerId int    `json:"caller_id"`
}

type callCancel struct {
	Type       string `json:"type"`
	ReceiverId int    `json:"receiver_id"`
}

type callHangup struct {
	Type string `json:"type"`
}

// Inbound signal payloads (the data field of the transport envelope).

type incomingPayload struct {
	CallerId     int    `json:"caller_id"`
	CallerName   string `json:"caller_name"`
	CallerAvatar string `json:"caller_avatar"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

// Signal type names, outbound and inbound.
const (
	sigRequest = "voice_call_request"
	sigAccept  = "voice_call_accept"
	sigReject  = "voice_call_reject"
	sigCancel  = "voice_call_cancel"
	sigHangup  = "voice_call_hangup"

	sigIncoming  = "voice_call_incoming"
	sigCancelled = "voice_call_cancelled"
	sigConnected = "voice_call_connected"
	sigRejected  = "voice_call_rejected"
	sigBusy      = "voice_call_busy"
	sigFailed    = "voice_call_failed"
	sigEnded     = "voice_call_ended"
)
