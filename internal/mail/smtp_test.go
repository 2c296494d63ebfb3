package mail

import (
	"mime"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageHeaders(t *testing.T) {
	reply := NewReply(&Message{ID: "abc@x", From: "a@x", Subject: "고민"}, "<p>조언</p>")
	m := buildMessage("gongja@x", reply)

	assert.Equal(t, []string{"gongja@x"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@x"}, m.GetHeader("To"))
	subject := m.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "Re: 고민", decoded)
	assert.Equal(t, []string{"<abc@x>"}, m.GetHeader("In-Reply-To"))
}

func TestBuildMessageWithoutMessageID(t *testing.T) {
	m := buildMessage("gongja@x", NewReply(&Message{From: "a@x", Subject: "상담"}, "x"))
	assert.Empty(t, m.GetHeader("In-Reply-To"))
}

func TestRenderer_EscapesAndFillsSlots(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	html, err := r.Render("<script>alert(1)</script> 고민", "자네의 조언")
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "자네의 조언")
}

func TestRenderer_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>{{.GominContent}}</p><p>{{.Message}}</p>"), 0o644))

	r, err := NewRenderer(path)
	require.NoError(t, err)
	html, err := r.Render("고민", "조언")
	require.NoError(t, err)
	assert.Equal(t, "<p>고민</p><p>조언</p>", html)
}

func TestRenderer_BadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.html")
	require.NoError(t, os.WriteFile(path, []byte("{{.Unknown"), 0o644))

	_, err := NewRenderer(path)
	assert.ErrorContains(t, err, "parse template")

	_, err = NewRenderer(filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorContains(t, err, "read template")
}
