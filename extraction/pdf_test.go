package extraction

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onePagePDF writes a single-page PDF whose page draws content.
func onePagePDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractReadsTextLayer(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantText string
		wantErr  error
	}{
		{
			name:     "text stream",
			content:  "BT /F1 12 Tf 72 720 Td (This lease agreement) Tj ET",
			wantText: "This lease agreement",
		},
		{
			name:    "drawing only",
			content: "0 0 m 200 200 l S",
			wantErr: ErrNoText,
		},
	}

	e := NewPDFExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := e.Extract(context.Background(), onePagePDF(tt.content))
			assert.Equal(t, 1, doc.Pages)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, doc.Text)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, doc.Text, tt.wantText)
		})
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	e := NewPDFExtractor()

	_, err := e.Extract(context.Background(), []byte("just some text"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestExtractRejectsTruncatedPDF(t *testing.T) {
	e := NewPDFExtractor()
	_, err := e.Extract(context.Background(), []byte("%PDF-1.4\n1 0 obj\n<<"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces", in: "This   Agreement\tis made", want: "This Agreement is made"},
		{name: "blank lines", in: "Clause 1\r\n\r\n\r\n\nClause 2", want: "Clause 1\n\nClause 2"},
		{name: "only whitespace", in: " \n\t \n", want: ""},
		{name: "tamil", in: "ஒப்பந்தம்   விதிகள்", want: "ஒப்பந்தம் விதிகள்"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collapseWhitespace(tt.in))
		})
	}
}
