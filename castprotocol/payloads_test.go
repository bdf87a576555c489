package castprotocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishen/go-chromecast/cast"
)

type sentMessage struct {
	payload   cast.Payload
	source    string
	dest      string
	namespace string
}

// recordingConn records outgoing messages. Only Send is used.
type recordingConn struct {
	cast.Conn
	sent []sentMessage
	err  error
}

func (c *recordingConn) Send(_ int, payload cast.Payload, source, dest, namespace string) error {
	c.sent = append(c.sent, sentMessage{payload: payload, source: source, dest: dest, namespace: namespace})
	return c.err
}

func TestLoadPayloadJSON(t *testing.T) {
	p := newLoadPayload(LoadRequest{
		URL:          "http://10.0.0.2:3500/ABC/clip.mp4",
		ContentType:  "video/mp4",
		StartTime:    12.5,
		Duration:     596,
		Title:        "Big Buck Bunny",
		Subtitle:     "A large rabbit",
		Studio:       "castplay",
		ThumbnailURL: "http://10.0.0.2:3500/DEF/bbb.jpg",
	})
	p.SetRequestId(7)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "LOAD",
		"requestId": 7,
		"currentTime": 12.5,
		"autoplay": true,
		"media": {
			"contentId": "http://10.0.0.2:3500/ABC/clip.mp4",
			"contentType": "video/mp4",
			"streamType": "BUFFERED",
			"duration": 596,
			"metadata": {
				"metadataType": 1,
				"title": "Big Buck Bunny",
				"subtitle": "A large rabbit",
				"studio": "castplay",
				"images": [{"url": "http://10.0.0.2:3500/DEF/bbb.jpg"}]
			}
		}
	}`, string(out))
}

func TestLoadPayloadWithoutArtwork(t *testing.T) {
	p := newLoadPayload(LoadRequest{URL: "http://a/b.mp4", StreamType: "LIVE"})

	require.Equal(t, "LIVE", p.Media.StreamType)
	require.Empty(t, p.Media.Metadata.Images)
}

func TestLaunchDefaultReceiver(t *testing.T) {
	conn := &recordingConn{}

	require.NoError(t, LaunchDefaultReceiver(conn))
	require.Len(t, conn.sent, 1)

	msg := conn.sent[0]
	require.Equal(t, "sender-0", msg.source)
	require.Equal(t, "receiver-0", msg.dest)
	require.Equal(t, namespaceReceiver, msg.namespace)

	launch, ok := msg.payload.(*LaunchPayload)
	require.True(t, ok)
	require.Equal(t, "LAUNCH", launch.Type)
	require.Equal(t, DefaultMediaReceiver, launch.AppId)
	require.NotZero(t, launch.RequestId)
}

func TestLoadWithMetadataConnectsFirst(t *testing.T) {
	conn := &recordingConn{}

	require.NoError(t, LoadWithMetadata(conn, "transport-1", LoadRequest{URL: "http://a/b.mp4"}))
	require.Len(t, conn.sent, 2)

	require.Equal(t, namespaceConn, conn.sent[0].namespace)
	require.Equal(t, "transport-1", conn.sent[0].dest)
	require.Equal(t, namespaceMedia, conn.sent[1].namespace)
	require.Equal(t, "transport-1", conn.sent[1].dest)

	first := conn.sent[0].payload.(*HeaderPayload).RequestId
	second := conn.sent[1].payload.(*LoadPayload).RequestId
	require.Greater(t, second, first)
}

func TestLoadWithMetadataSendError(t *testing.T) {
	conn := &recordingConn{err: errors.New("broken pipe")}

	err := LoadWithMetadata(conn, "transport-1", LoadRequest{URL: "http://a/b.mp4"})
	require.ErrorContains(t, err, "broken pipe")
	require.Len(t, conn.sent, 1)
}

func TestSplitDeviceAddr(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"192.168.1.20", "192.168.1.20", DefaultPort, false},
		{"192.168.1.20:8010", "192.168.1.20", 8010, false},
		{"living-room.local:8009", "living-room.local", 8009, false},
		{"192.168.1.20:http", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := splitDeviceAddr(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantHost, host)
			require.Equal(t, tt.wantPort, port)
		})
	}
}

func TestCastStatusNearEnd(t *testing.T) {
	require.True(t, (&CastStatus{CurrentTime: 119, Duration: 120}).nearEnd())
	require.False(t, (&CastStatus{CurrentTime: 100, Duration: 120}).nearEnd())
	require.False(t, (&CastStatus{CurrentTime: 5}).nearEnd())
}
