package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParse_MultipartSkipsAttachment(t *testing.T) {
	raw := crlf(`From: =?UTF-8?B?7IOB64u0?= <worried@example.com>
To: gongja@example.com
Subject: =?UTF-8?B?W+qzoOuvvF0g7ZqM7IKsIOydvOydtCDtnpjrk6TslrTsmpQ=?=
Message-ID: <abc123@example.com>
Date: Sun, 18 Oct 2026 09:00:00 +0900
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8
Content-Disposition: attachment; filename="notes.txt"

첨부 파일 내용
--XYZ
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

7Jik64qYIO2ajOyCrOyXkOyEnCDsi6TsiJjrpbwg7ZW07IScIOuEiOustCDsho3sg4HtlZjri6Q=
--XYZ--
`)

	m, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "worried@example.com", m.From)
	assert.Equal(t, "[고민] 회사 일이 힘들어요", m.Subject)
	assert.Equal(t, "abc123@example.com", m.ID)
	assert.Equal(t, "오늘 회사에서 실수를 해서 너무 속상하다", m.Body)
	assert.True(t, m.Date.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
}

func TestParse_NestedAlternativeTakesFirstTextPart(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: 상담
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

평문 본문
--inner
Content-Type: text/html; charset=utf-8

<p>HTML 본문</p>
--inner--
--outer--
`)

	m, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "평문 본문", m.Body)
	assert.Equal(t, "상담", m.Subject)
}

func TestParse_SinglePartHTML(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: hello
Content-Type: text/html; charset=utf-8

<p>고민이 있어요</p>
`)

	m, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "<p>고민이 있어요</p>", m.Body)
	assert.Empty(t, m.ID)
}

func TestParse_EUCKRSubject(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: =?EUC-KR?B?u/O04yC/5MO7?=
Content-Type: text/plain; charset=utf-8

본문
`)

	m, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "상담 요청", m.Subject)
}

func TestParse_NoTextPart(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: 고민
Content-Type: image/png

xxxx
`)

	m, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Empty(t, m.Body)
}

func TestMessageKey(t *testing.T) {
	withID := &Message{ID: "x@y", From: "a@b.c"}
	assert.Equal(t, "x@y", withID.Key())

	d := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	noID := &Message{From: "a@b.c", Subject: "고민", Date: d}
	assert.Equal(t, "a@b.c|2026-10-18T00:00:00Z|고민", noID.Key())
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: 고민 상담", ReplySubject("고민 상담"))
	assert.Equal(t, "RE: 고민", ReplySubject("RE: 고민"))
	assert.Equal(t, "Re: ", ReplySubject(""))
}

func TestMatchesTrigger(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"[고민] 회사 일", true},
		{"진로 상담 부탁드립니다", true},
		{"Worry about work", false},
		{"안녕하세요", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesTrigger(tt.subject, DefaultTriggers), tt.subject)
	}

	assert.True(t, MatchesTrigger("Need ADVICE", []string{"advice"}))
	assert.False(t, MatchesTrigger("anything", []string{"  "}))
}
