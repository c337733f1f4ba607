package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", NotFound("match"), KindNotFound},
		{"wrapped", fmt.Errorf("select charter: %w", Forbidden("not yours")), KindForbidden},
		{"foreign error", errors.New("boom"), KindInternal},
		{"insufficient", InsufficientFunds(100, 40), KindInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestInsufficientFundsMessageNamesBothAmounts(t *testing.T) {
	err := InsufficientFunds(824, 500)
	assert.Contains(t, err.Error(), "required 824")
	assert.Contains(t, err.Error(), "available 500")
}

func TestInvalidStateNamesCurrentStatus(t *testing.T) {
	err := InvalidState("match", "searching", "respond")
	assert.Equal(t, "match is searching; cannot respond", err.Error())
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))
	assert.Equal(t, "internal error", Message(err))
	assert.ErrorContains(t, err, "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindForbidden))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidState))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusPaymentRequired, HTTPStatus(KindInsufficientFunds))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}
