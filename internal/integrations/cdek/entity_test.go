package cdek

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEntity(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		notFound bool
		wantCode string
	}{
		{name: "empty object", body: `{"entity":{}}`, notFound: true},
		{name: "empty list", body: `{"entity":[]}`, notFound: true},
		{name: "null", body: `{"entity":null}`, notFound: true},
		{name: "missing", body: `{"requests":[]}`, notFound: true},
		{
			name:     "list takes first element",
			body:     `{"entity":[{"cdek_number":"A","statuses":[]},{"cdek_number":"B","statuses":[]}]}`,
			wantCode: "A",
		},
		{
			name:     "object used directly",
			body:     `{"entity":{"cdek_number":"C","statuses":[{"code":"CREATED","name":"Создан","date_time":"2025-01-01T00:00:00+0000"}]}}`,
			wantCode: "C",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := decodeEntity([]byte(tc.body))
			if tc.notFound {
				require.ErrorIs(t, err, ErrNotFound)
				require.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCode, rec.TrackingCode)
		})
	}
}

func TestDecodeEntity_UnexpectedShapes(t *testing.T) {
	for _, body := range []string{`{"entity":"oops"}`, `{"entity":42}`, `{"entity":["x"]}`} {
		_, err := decodeEntity([]byte(body))
		require.ErrorIs(t, err, errUnexpectedEntity, body)
	}
}

func TestDecodeEntity_InvalidJSON(t *testing.T) {
	_, err := decodeEntity([]byte(`<html>`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestIsForbiddenSignature(t *testing.T) {
	require.True(t, isForbiddenSignature([]byte(`{"code":"v2_entity_forbidden"}`)))
	require.True(t, isForbiddenSignature([]byte(`Order not found in the account`)))
	require.False(t, isForbiddenSignature([]byte(`{"code":"v2_field_is_empty"}`)))
}
