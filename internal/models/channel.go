package models

// ChannelIdentity names a signaling channel. ARN is the durable identifier.
type ChannelIdentity struct {
	Name string `json:"name,omitempty"`
	ARN  string `json:"arn"`
}

// SignalingEndpoints are the viewer endpoints issued for a channel.
type SignalingEndpoints struct {
	WSS   string `json:"wssEndpoint"`
	HTTPS string `json:"httpsEndpoint"`
}

// ResolvedChannel is a channel together with both of its endpoints.
type ResolvedChannel struct {
	ChannelIdentity
	Endpoints SignalingEndpoints `json:"endpoints"`
}

// IceServer is one relay/STUN/TURN entry handed to the viewer.
type IceServer struct {
	URLs       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

// NewIceServer sets username and credential only when both are present.
func NewIceServer(urls, username, credential string) IceServer {
	server := IceServer{URLs: urls}
	if username != "" && credential != "" {
		server.Username = username
		server.Credential = credential
	}
	return server
}

// SessionConfiguration is everything a viewer needs to open a signaling session.
type SessionConfiguration struct {
	ChannelEndpoint string      `json:"channelEndpoint"` // Signed WSS URL
	ChannelARN      string      `json:"channelArn"`
	ClientID        string      `json:"clientId"`
	IceServers      []IceServer `json:"iceServers"`
	Region          string      `json:"region"`

	// Not part of the viewer contract; echoed by the HTTP layer.
	HTTPSEndpoint string `json:"-"`
}
