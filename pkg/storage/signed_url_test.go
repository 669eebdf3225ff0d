package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("attachment-1", "assignments/a1/worksheet.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	ownerID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "attachment-1", ownerID)
	assert.Equal(t, "assignments/a1/worksheet.pdf", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("attachment-1", "reports/progress.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "attachment-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestSignedURLRejectsExpiredToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("attachment-1", "reports/progress.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)
}

func TestSignedURLExpiredTokenAllowedForCleanup(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond)

	token, _, err := signer.Generate("report-1", "reports/attendance.csv")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	ownerID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "report-1", ownerID)
	assert.Equal(t, "reports/attendance.csv", relPath)
}

func TestSignedURLRejectsMissingSecret(t *testing.T) {
	signer := NewSignedURLSigner("", time.Minute)

	_, _, err := signer.Generate("attachment-1", "x")
	assert.Error(t, err)
}
