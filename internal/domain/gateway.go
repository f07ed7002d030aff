package domain

type GatewayState string

const (
	GatewayPending GatewayState = "pending"
	GatewayReady   GatewayState = "ready"
	GatewayFailed  GatewayState = "failed"
)

type GatewayStatus struct {
	State  GatewayState `json:"state"`
	Reason string       `json:"reason,omitempty"`
}

func (s GatewayStatus) Ready() bool {
	return s.State == GatewayReady
}
