package hybridhll

import (
	"errors"

	hllerrors "github.com/tamirms/hybridhll/errors"
	"github.com/tamirms/hybridhll/internal/hashlist"
)

// Merge folds every element of o into s, leaving o unchanged. Afterwards s
// estimates the union of both streams. Two hash lists merge exactly at the
// narrower width; as soon as either side is dense the result is dense.
func (s *Sketch) Merge(o *Sketch) error {
	if err := s.compatible(o); err != nil {
		return err
	}
	switch dst := s.state.(type) {
	case *denseState:
		switch src := o.state.(type) {
		case *denseState:
			dst.regs.MaxMerge(src.regs)
			dst.floor = max(dst.floor, src.floor)
		case *hashListState:
			src.store.Each(func(register uint8, index uint32) {
				dst.regs.SetGreater(index, register)
			})
			dst.floor = max(dst.floor, float64(src.store.Cardinality()))
		}
	case *hashListState:
		switch src := o.state.(type) {
		case *denseState:
			dense := s.dehybridize(dst)
			dense.regs.MaxMerge(src.regs)
			dense.floor = max(dense.floor, src.floor)
		case *hashListState:
			s.mergeHashList(dst, src.store)
		}
	}
	return nil
}

// mergeHashList inserts the words of src into dst, downgrading and
// dehybridizing dst exactly as element insertion would. src may alias dst.
func (s *Sketch) mergeHashList(dst *hashListState, src *hashlist.Store) {
	words := src.Words()
	srcWidth := src.Width()
	srcCard := src.Cardinality()
	srcDuplicates := src.Duplicates()

	if srcWidth < dst.store.Width() {
		dst.store.DowngradeTo(srcWidth)
	}
	for i, w := range words {
		for {
			width := dst.store.Width()
			_, err := dst.store.InsertWord(s.codec.Downgrade(w, srcWidth, srcWidth-width))
			if err == nil {
				break
			}
			if errors.Is(err, hllerrors.ErrDowngradableSaturation) {
				dst.store.Downgrade()
				continue
			}
			dense := s.dehybridize(dst)
			for _, rest := range words[i:] {
				register, index := s.codec.Decode(rest, srcWidth)
				dense.regs.SetGreater(index, register)
			}
			dense.floor = max(dense.floor, float64(srcCard))
			return
		}
	}
	dst.store.RaiseDuplicates(srcDuplicates)
}
