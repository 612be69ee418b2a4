package media

import (
	"errors"
	"io"
)

// progressReader conta bytes lidos e reporta o acumulado a partir de base.
type progressReader struct {
	r          io.Reader
	base       int64
	read       int64
	total      int64
	onProgress ProgressFunc
}

func newProgressReader(r io.Reader, base, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, base: base, total: total, onProgress: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.base+p.read, p.total)
		}
	}
	return n, err
}

// Seek permite que o SDK rebobine o corpo; a contagem acompanha a posição.
func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := p.r.(io.Seeker)
	if !ok {
		return 0, errors.New("media: leitor não suporta seek")
	}
	pos, err := seeker.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	p.read = pos
	return pos, nil
}
