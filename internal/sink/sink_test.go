package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

func testRow(ts time.Time, advice string) counsel.LogRow {
	return counsel.LogRow{
		ID:              uuid.New(),
		Timestamp:       ts,
		Source:          counsel.SourceEmail,
		Email:           "a@b.c",
		OriginalConcern: "오늘 회사에서 실수를 해서 너무 속상하다",
		Concept:         "충서",
		SelectedQuote:   "학이-8: 허물이 있으면 고치기를 꺼리지 말라.",
		Advice:          advice,
		AnalysisSeconds: 1.5,
		AdviceSeconds:   2,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSV_HeaderWrittenOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	s := NewCSV(dir)
	ts := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(context.Background(), testRow(ts, "첫 번째")))
	require.NoError(t, s.Append(context.Background(), testRow(ts.Add(time.Hour), "두 번째, \"인용\"\n줄바꿈")))

	path := filepath.Join(dir, "counseling_log_202610.csv")
	assert.Equal(t, path, s.Path(testRow(ts, "")))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, counsel.LogColumns, records[0])
	assert.Equal(t, "첫 번째", records[1][14])
	assert.Equal(t, "두 번째, \"인용\"\n줄바꿈", records[2][14])
	assert.Equal(t, "2026-10-18 10:00:00", records[2][0])
}

func TestCSV_NewMonthNewFile(t *testing.T) {
	dir := t.TempDir()
	s := NewCSV(dir)

	require.NoError(t, s.Append(context.Background(), testRow(time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC), "9월")))
	require.NoError(t, s.Append(context.Background(), testRow(time.Date(2026, 10, 1, 1, 0, 0, 0, time.UTC), "10월")))

	assert.Len(t, readAll(t, filepath.Join(dir, "counseling_log_202609.csv")), 2)
	assert.Len(t, readAll(t, filepath.Join(dir, "counseling_log_202610.csv")), 2)
}

func TestCSV_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	dir := t.TempDir()
	s := NewCSV(dir)
	ts := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(context.Background(), testRow(ts, "동시에 쓰는 조언입니다")))
		}()
	}
	wg.Wait()

	records := readAll(t, filepath.Join(dir, "counseling_log_202610.csv"))
	require.Len(t, records, 21)
	for _, r := range records[1:] {
		assert.Len(t, r, len(counsel.LogColumns))
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, counsel.LogRow) error {
	f.calls++
	return errors.New("unavailable")
}

type countingSink struct{ rows int }

func (c *countingSink) Append(context.Context, counsel.LogRow) error {
	c.rows++
	return nil
}

func TestMulti_AttemptsEverySink(t *testing.T) {
	bad := &failingSink{}
	good := &countingSink{}
	m := Multi{bad, good}

	err := m.Append(context.Background(), testRow(time.Now(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.rows)

	assert.NoError(t, Multi{good}.Append(context.Background(), testRow(time.Now(), "y")))
}
