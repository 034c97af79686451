package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorChaining(t *testing.T) {
	ErrBase := New("base error")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.Equal(t, "derived", ErrBase.New("derived").Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrFirstLevel := ErrBase.New("first level")
	assert.Equal(t, "first level", ErrFirstLevel.Error())
	assert.ErrorIs(t, ErrFirstLevel, ErrBase)

	ErrOther := New("other error")
	ErrOtherMsg := ErrOther.Msg("other error msg")
	ErrWrapped := ErrFirstLevel.Err(ErrOtherMsg)
	assert.Equal(t, "first level", ErrWrapped.Error())
	assert.ErrorIs(t, ErrWrapped, ErrBase)
	assert.ErrorIs(t, ErrWrapped, ErrFirstLevel)
	assert.ErrorIs(t, ErrWrapped, ErrOther)
	assert.ErrorIs(t, ErrWrapped, ErrOtherMsg)

	goErr := errors.New("plain error")
	ErrWrapped = ErrFirstLevel.Err(goErr)
	assert.Equal(t, "first level", ErrWrapped.Error())
	assert.ErrorIs(t, ErrWrapped, ErrBase)
	assert.ErrorIs(t, ErrWrapped, goErr)

	ErrWrapped = ErrFirstLevel.MsgErr("custom msg", goErr)
	assert.Equal(t, "custom msg", ErrWrapped.Error())
	assert.ErrorIs(t, ErrWrapped, ErrBase)
	assert.ErrorIs(t, ErrWrapped, goErr)
}

func TestStatusCodeInheritance(t *testing.T) {
	ErrConflict := New("scheduling conflict").SetStatusCode(http.StatusConflict)
	assert.Equal(t, http.StatusConflict, ErrConflict.StatusCode())

	ErrOverlap := ErrConflict.New("slot overlaps an existing slot")
	assert.Equal(t, http.StatusConflict, ErrOverlap.StatusCode())
	assert.ErrorIs(t, ErrOverlap, ErrConflict)

	// Msg and Err keep the status code too.
	assert.Equal(t, http.StatusConflict, ErrOverlap.Msg("09:00-10:00 is taken").StatusCode())
	assert.Equal(t, http.StatusConflict, ErrOverlap.Err(fmt.Errorf("db detail")).StatusCode())
}

func TestErrorAllExpansion(t *testing.T) {
	ErrBase := New("booking failed").SetExpandError(true)
	wrapped := ErrBase.MsgErr("slot claim failed", fmt.Errorf("row not updated"))

	assert.Equal(t, "slot claim failed", wrapped.Error())
	all := wrapped.SetExpandError(true).ErrorAll()
	assert.Contains(t, all, "slot claim failed")
	assert.Contains(t, all, "row not updated")

	// Without expansion only the top message is rendered.
	assert.Equal(t, "slot claim failed", wrapped.SetExpandError(false).ErrorAll())
}

func TestUnwrapAll(t *testing.T) {
	ErrBase := New("base")
	cause1 := fmt.Errorf("cause one")
	cause2 := fmt.Errorf("cause two")
	wrapped := ErrBase.Err(cause1, cause2)

	all := wrapped.UnwrapAll()
	assert.Len(t, all, 3)
	assert.ErrorIs(t, wrapped, cause1)
	assert.ErrorIs(t, wrapped, cause2)
}
