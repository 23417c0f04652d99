package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var secretKey = []byte("secret")

// MintToken returns an HS256 access token expiring at `exp`.
func MintToken(t *testing.T, exp time.Time, subject ...string) string {
	t.Helper()
	token, err := mintToken(exp, subject...)
	if err != nil {
		t.Fatalf("MintToken() failed: %v", err)
	}
	return token
}

func mintToken(exp time.Time, subject ...string) (string, error) {
	claims := jwt.StandardClaims{
		Id:        uuid.NewString(),
		Issuer:    "masomo",
		ExpiresAt: exp.Unix(),
		IssuedAt:  time.Now().Unix(),
	}
	if len(subject) > 0 {
		claims.Subject = subject[0]
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

func parseToken(token string) (*jwt.StandardClaims, error) {
	claims := new(jwt.StandardClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	return claims, err
}

// LogEntry is one call to a RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// RecordingLogger is a core.Logger keeping every entry in memory.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *RecordingLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *RecordingLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *RecordingLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Level returns the entries logged at `level`.
func (l *RecordingLogger) Level(level string) []LogEntry {
	var entries []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
