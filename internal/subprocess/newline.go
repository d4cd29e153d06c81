package subprocess

import "golang.org/x/text/transform"

// newlineNormalizer is a transform.Transformer that rewrites "\r\n" and lone
// "\r" to "\n". It remembers a trailing "\r" so a pair split across two
// writes still yields one newline; use it through a transform.Writer, which
// keeps that state between writes.
type newlineNormalizer struct {
	afterCR bool
}

func (n *newlineNormalizer) Reset() { n.afterCR = false }

func (n *newlineNormalizer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for ; nSrc < len(src); nSrc++ {
		c := src[nSrc]
		if c == '\n' && n.afterCR {
			// Already emitted for the preceding \r.
			n.afterCR = false
			continue
		}
		if nDst == len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		if c == '\r' {
			dst[nDst] = '\n'
			n.afterCR = true
		} else {
			dst[nDst] = c
			n.afterCR = false
		}
		nDst++
	}
	return nDst, nSrc, nil
}
