package recognition

import (
	"fmt"
	"io"
	"strconv"
)

// Report is the outcome of analyzing one folder.
type Report struct {
	Folder    string `json:"folder"`
	Files     int    `json:"files"`
	Failed    int    `json:"failed_files"`
	Functions int    `json:"functions"`
	MinHash   []Pick `json:"minhash"`
	SimHash   []Pick `json:"simhash"`
}

// Section markers of the text report. Downstream scorers parse the report
// positionally, so these and the line layout must not change.
const (
	folderHeaderFormat = "===== Folder: %s =======\n"
	minHashHeader      = "~~~~~ MINHASH ~~~~~~~\n"
	simHashHeader      = "~~~~~ SIMHASH ~~~~~~~\n"
	pickLineFormat     = "NS; %s; Library; %s; Version; %s; Occurence; %d; Confidence; %s\n"
)

// WriteTo writes the text report: folder header, minhash section, then
// simhash section.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, folderHeaderFormat, r.Folder)
	io.WriteString(cw, minHashHeader)
	writePicks(cw, r.MinHash)
	io.WriteString(cw, simHashHeader)
	writePicks(cw, r.SimHash)
	return cw.n, cw.err
}

func writePicks(w io.Writer, picks []Pick) {
	for _, p := range picks {
		fmt.Fprintf(w, pickLineFormat, p.Namespace, p.Library, p.Version, p.Occurrences, formatConfidence(p.Confidence))
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
