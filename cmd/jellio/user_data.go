package main

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/addon"
)

// decodeUserData decodes the first path segment of addon requests, which is base64url encoded JSON.
func decodeUserData(data string, logger *zap.Logger) (addon.UserData, error) {
	// Don't log the data, it contains the access token

	// If there's padding, we remove it, so that the decoding works with both:
	data = strings.TrimRight(data, "=")
	userDataDecoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		// We use WARN instead of ERROR because it's most likely an *encoding* error on the client side
		logger.Warn("Couldn't decode user data", zap.Error(err))
		return addon.UserData{}, err
	}

	ud := addon.UserData{}
	if err := json.Unmarshal(userDataDecoded, &ud); err != nil {
		logger.Warn("Couldn't unmarshal user data", zap.Error(err))
		return addon.UserData{}, err
	}
	return ud, nil
}
