package confirmation

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	taken map[string]bool
	calls int
	err   error
}

func (f *fakeLookup) ConfirmationCodeExists(_ context.Context, code string) (bool, error) {
	f.calls++
	return f.taken[code], f.err
}

func TestGenerateShape(t *testing.T) {
	g := NewGenerator()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := g.Generate(context.Background(), &fakeLookup{})
		require.NoError(t, err)
		assert.True(t, Valid(code), "code %q has wrong shape", code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190, "codes should practically never repeat")
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	// Zero bytes map to "AAAAAAAA", ones to "BBBBBBBB".
	src := bytes.NewReader(append(bytes.Repeat([]byte{0}, Length), bytes.Repeat([]byte{1}, Length)...))
	lookup := &fakeLookup{taken: map[string]bool{"AAAAAAAA": true}}

	code, err := NewGeneratorFrom(src).Generate(context.Background(), lookup)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", code)
	assert.Equal(t, 2, lookup.calls)
}

func TestGenerateGivesUp(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0}, Length*MaxAttempts))
	lookup := &fakeLookup{taken: map[string]bool{"AAAAAAAA": true}}

	_, err := NewGeneratorFrom(src).Generate(context.Background(), lookup)
	assert.Equal(t, model.KindGeneration, model.KindOf(err))
	assert.Equal(t, MaxAttempts, lookup.calls)
}

func TestGenerateLookupError(t *testing.T) {
	_, err := NewGenerator().Generate(context.Background(), &fakeLookup{err: errors.New("db down")})
	assert.Error(t, err)
	assert.Equal(t, model.KindInternal, model.KindOf(err))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("ABCD2345"))
	assert.False(t, Valid("ABCD234"))
	assert.False(t, Valid("ABCD2340"), "zero is excluded")
	assert.False(t, Valid("abcd2345"))
}
