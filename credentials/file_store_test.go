package credentials_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/stretchr/testify/require"
)

func TestFileStore_EmptyWhenMissing(t *testing.T) {
	s, err := credentials.OpenFileStore(filepath.Join(t.TempDir(), "credential.json"))
	require.NoError(t, err)

	_, ok := s.Get()
	require.False(t, ok)
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential.json")
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	s, err := credentials.OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1", ExpiresAt: expires}))

	cred, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, "tok-1", cred.Token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := credentials.OpenFileStore(path)
	require.NoError(t, err)
	cred, ok = reopened.Get()
	require.True(t, ok)
	require.Equal(t, "tok-1", cred.Token)
	require.True(t, expires.Equal(cred.ExpiresAt))
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	s, err := credentials.OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1"}))

	require.NoError(t, s.Clear())
	_, ok := s.Get()
	require.False(t, ok)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestFileStore_SetZeroClears(t *testing.T) {
	s, err := credentials.OpenFileStore(filepath.Join(t.TempDir(), "credential.json"))
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1"}))
	require.NoError(t, s.Set(credentials.Credential{}))
	_, ok := s.Get()
	require.False(t, ok)
}

func TestFileStore_CorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := credentials.OpenFileStore(path)
	require.NoError(t, err)
	_, ok := s.Get()
	require.False(t, ok)
}

func TestCredential_Expired(t *testing.T) {
	now := time.Now()
	require.False(t, credentials.Credential{Token: "x"}.Expired(now))
	require.True(t, credentials.Credential{Token: "x", ExpiresAt: now.Add(-time.Second)}.Expired(now))
	require.False(t, credentials.Credential{Token: "x", ExpiresAt: now.Add(time.Hour)}.Expired(now))
	require.True(t, credentials.Credential{}.IsZero())
}
