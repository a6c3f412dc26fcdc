package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/addon"
)

func TestDecodeUserData(t *testing.T) {
	logger := zap.NewNop()
	json := `{"authToken":"abc","libraries":["f137a2dd21bbc1b99aa5c0f6bf02a805"],"serverName":"Home"}`
	expected := addon.UserData{
		AuthToken:  "abc",
		Libraries:  []string{"f137a2dd21bbc1b99aa5c0f6bf02a805"},
		ServerName: "Home",
	}

	// With and without padding
	for _, encoding := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding} {
		ud, err := decodeUserData(encoding.EncodeToString([]byte(json)), logger)
		require.NoError(t, err)
		require.Equal(t, expected, ud)
	}

	_, err := decodeUserData("not base64!", logger)
	require.Error(t, err)

	_, err = decodeUserData(base64.RawURLEncoding.EncodeToString([]byte("not json")), logger)
	require.Error(t, err)
}
