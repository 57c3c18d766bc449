package xshin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trillium/shinobi/pkg/xshin"
)

func TestClientNewestPoolID(t *testing.T) {
	t.Parallel()

	t.Run("it returns the trimmed pool id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(map[string]string{"/data/pool/newest": "1723\n"}))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL+"/")

		// Act
		id, err := client.NewestPoolID(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "1723", id)
	})

	t.Run("it rejects an empty body", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(map[string]string{"/data/pool/newest": "  "}))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.NewestPoolID(t.Context())

		// Assert
		require.ErrorIs(t, err, xshin.ErrEmptyPoolID)
	})

	t.Run("it reports a non-200 status", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(nil))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.NewestPoolID(t.Context())

		// Assert
		require.ErrorIs(t, err, xshin.ErrUnexpectedStatus)
	})
}

func TestClientFetchBlob(t *testing.T) {
	t.Parallel()

	t.Run("it downloads every blob kind from the pool path", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(map[string]string{
			"/data/pool/1723/overview.bin":        "\x00overview",
			"/data/pool/1723/pool.bin":            "\x02pool",
			"/data/pool/1723/non_pool_voters.bin": "\x02non-pool",
		}))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL)

		for _, kind := range xshin.BlobKinds {
			// Act
			blob, err := client.FetchBlob(t.Context(), "1723", kind)

			// Assert
			require.NoError(t, err)
			assert.NotEmpty(t, blob, "blob %s", kind)
		}
	})

	t.Run("it returns the body byte for byte", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(map[string]string{"/data/pool/9/pool.bin": "\x01\xfb\x34\x12\xff"}))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL)

		// Act
		blob, err := client.FetchBlob(t.Context(), "9", xshin.BlobPool)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0xfb, 0x34, 0x12, 0xff}, blob)
	})

	t.Run("it refuses an empty pool id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		client := xshin.NewClient(http.DefaultClient, "http://unused.invalid")

		// Act
		_, err := client.FetchBlob(t.Context(), "", xshin.BlobOverview)

		// Assert
		require.ErrorIs(t, err, xshin.ErrEmptyPoolID)
	})

	t.Run("it reports a missing blob", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(routes(nil))
		defer server.Close()
		client := xshin.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.FetchBlob(t.Context(), "1723", xshin.BlobNonPoolVoters)

		// Assert
		require.ErrorIs(t, err, xshin.ErrUnexpectedStatus)
		assert.Contains(t, err.Error(), "404")
	})
}

// routes serves fixed bodies by path and 404s everything else
func routes(bodies map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(body))
	}
}
