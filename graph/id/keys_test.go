package id

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestFunction(t *testing.T) {
	assert.Equal(t, testHash+":0x401000", Function(testHash, 0x401000))
	assert.Equal(t, testHash+":0x0", Function(testHash, 0))

	if Function("a", 1) == Function("b", 1) {
		t.Fatalf("function keys must be scoped to the binary")
	}
}

func TestImport(t *testing.T) {
	assert.Equal(t, "imp:kernel32.dll:CreateFileW", Import("KERNEL32.dll", "CreateFileW"))
	assert.Equal(t, Import("Kernel32.DLL", "CreateFileW"), Import("kernel32.dll", "CreateFileW"))

	// symbol case is significant
	assert.NotEqual(t, Import("kernel32.dll", "createfilew"), Import("kernel32.dll", "CreateFileW"))

	scoped := ImportIn(testHash, "Kernel32.dll", "CreateFileW")
	assert.Equal(t, "imp:"+testHash+":kernel32.dll:CreateFileW", scoped)
	assert.NotEqual(t, Import("kernel32.dll", "CreateFileW"), scoped)
}

func TestString(t *testing.T) {
	sum := sha256.Sum256([]byte("Hello"))
	want := "str:" + testHash + ":" + hex.EncodeToString(sum[:])

	tests := []struct {
		name  string
		value string
	}{
		{name: "plain", value: "Hello"},
		{name: "trailing nul", value: "Hello\x00"},
		{name: "many nuls", value: "Hello\x00\x00\x00"},
		{name: "trailing newline", value: "Hello\r\n"},
		{name: "mixed", value: "Hello \x00\n\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, String(testHash, tt.value))
		})
	}

	assert.NotEqual(t, String(testHash, "Hello"), String(testHash, " Hello"), "leading whitespace is content")
	assert.NotEqual(t, String(testHash, "Hello"), String("other", "Hello"))
	assert.True(t, strings.HasPrefix(String(testHash, "Hello"), StringPrefix(testHash)))
}

func TestStringDeterminism(t *testing.T) {
	k1 := String(testHash, "GetProcAddress")
	k2 := String(testHash, "GetProcAddress")
	k3 := String(testHash, "GetProcAddress")
	if k1 != k2 || k2 != k3 {
		t.Fatalf("non-deterministic keys: %s %s %s", k1, k2, k3)
	}
	if !strings.HasPrefix(k1, "str:") {
		t.Errorf("key %q missing str: prefix", k1)
	}
	digest := strings.TrimPrefix(k1, "str:"+testHash+":")
	if len(digest) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(digest))
	}
}

func TestNormalizeString(t *testing.T) {
	assert.Equal(t, "abc", NormalizeString("abc\x00\x00"))
	assert.Equal(t, "a\x00b", NormalizeString("a\x00b\x00"))
	assert.Equal(t, "", NormalizeString("\x00"))
}

func TestLibrary(t *testing.T) {
	assert.Equal(t, "ntdll.dll", Library("NTDLL.DLL"))
}
