package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/M0-Anwar/diseases-detection/internal/evaluate"
)

// WriteImportances writes ranked feature importances as a tab-delimited
// table. top limits the number of rows; zero or less writes all of them.
func WriteImportances(w io.Writer, imps []evaluate.Importance, top int) error {
	if top > 0 && len(imps) > top {
		imps = imps[:top]
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#Rank\tFeature\tImportance")
	for i, imp := range imps {
		fmt.Fprintf(bw, "%d\t%s\t%.6f\n", i+1, imp.Feature, imp.Importance)
	}
	return bw.Flush()
}
