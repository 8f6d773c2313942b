// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feed

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func newEsploraServer(t *testing.T, txID ids.ID, status string, statusCode int, tip string) *Esplora {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx/"+hex.EncodeToString(txID[:])+"/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(statusCode)
		fmt.Fprint(w, status)
	})
	mux.HandleFunc("/blocks/tip/height", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, tip)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewEsplora(server.URL+"/", server.Client())
}

func TestEsploraGetConfirmations(t *testing.T) {
	txID := ids.GenerateTestID()

	tests := []struct {
		name                  string
		status                string
		statusCode            int
		tip                   string
		expectedConfirmations uint32
		expectedErr           error
	}{
		{
			name:                  "unconfirmed",
			status:                `{"confirmed":false}`,
			statusCode:            http.StatusOK,
			expectedConfirmations: 0,
		},
		{
			name:                  "in tip block",
			status:                `{"confirmed":true,"block_height":840000}`,
			statusCode:            http.StatusOK,
			tip:                   "840000",
			expectedConfirmations: 1,
		},
		{
			name:                  "buried",
			status:                `{"confirmed":true,"block_height":840000,"block_hash":"00"}`,
			statusCode:            http.StatusOK,
			tip:                   "840005\n",
			expectedConfirmations: 6,
		},
		{
			name:        "tip behind tx",
			status:      `{"confirmed":true,"block_height":840000}`,
			statusCode:  http.StatusOK,
			tip:         "839999",
			expectedErr: ErrTipBehindTx,
		},
		{
			name:        "unknown tx",
			status:      "Transaction not found",
			statusCode:  http.StatusNotFound,
			expectedErr: ErrUnexpectedStatus,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			e := newEsploraServer(t, txID, test.status, test.statusCode, test.tip)
			confirmations, err := e.GetConfirmations(t.Context(), txID)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expectedConfirmations, confirmations)
		})
	}
}

func TestEsploraMalformedResponses(t *testing.T) {
	txID := ids.GenerateTestID()

	e := newEsploraServer(t, txID, `{`, http.StatusOK, "")
	_, err := e.GetConfirmations(t.Context(), txID)
	require.Error(t, err)

	e = newEsploraServer(t, txID, `{"confirmed":true,"block_height":1}`, http.StatusOK, "tip")
	_, err = e.GetConfirmations(t.Context(), txID)
	require.Error(t, err)
}
