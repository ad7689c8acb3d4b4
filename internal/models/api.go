package models

import "time"

// InitializeRequest is the body of POST /api/kvs/initialize
type InitializeRequest struct {
	UserID      string `json:"userId"`
	ChannelName string `json:"channelName,omitempty"` // Name or ARN; falls back to configuration
}

// InitializeResponse keeps the field aliases older mobile clients read.
type InitializeResponse struct {
	SessionConfiguration
	ChannelARNAlias string          `json:"channelARN"`
	HTTPSEndpoint   string          `json:"httpsEndpoint"`
	Signaling       SignalingDetail `json:"signaling"`
}

// SignalingDetail is the nested signaling block of InitializeResponse.
type SignalingDetail struct {
	WSSEndpoint   string `json:"wssEndpoint"`
	HTTPSEndpoint string `json:"httpsEndpoint"`
	ChannelARN    string `json:"channelArn"`
	ClientID      string `json:"clientId"`
	Region        string `json:"region"`
}

// NewInitializeResponse expands a session configuration into the wire response.
func NewInitializeResponse(cfg SessionConfiguration) InitializeResponse {
	return InitializeResponse{
		SessionConfiguration: cfg,
		ChannelARNAlias:      cfg.ChannelARN,
		HTTPSEndpoint:        cfg.HTTPSEndpoint,
		Signaling: SignalingDetail{
			WSSEndpoint:   cfg.ChannelEndpoint,
			HTTPSEndpoint: cfg.HTTPSEndpoint,
			ChannelARN:    cfg.ChannelARN,
			ClientID:      cfg.ClientID,
			Region:        cfg.Region,
		},
	}
}

// SignURLRequest is the body of POST /api/kvs/sign-url
type SignURLRequest struct {
	Endpoint    string            `json:"endpoint"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
}

type SignURLResponse struct {
	SignedURL string `json:"signedUrl"`
}

// IceServersRequest is the body of POST /api/kvs/ice-servers
type IceServersRequest struct {
	ChannelName string `json:"channelName,omitempty"`
}

type IceServersResponse struct {
	IceServers []IceServer `json:"iceServers"`
}

// HealthResponse reports configuration presence, never values.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment HealthEnvironment `json:"environment"`
}

type HealthEnvironment struct {
	HasAWSCredentials bool   `json:"hasAwsCredentials"`
	Region            string `json:"region"`
	ChannelConfigured bool   `json:"channelConfigured"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
