package sink

import (
	"context"
	"errors"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

// Multi fans a row out to every sink. All sinks are attempted; the joined
// error of the failures is returned.
type Multi []counsel.Sink

func (m Multi) Append(ctx context.Context, row counsel.LogRow) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
