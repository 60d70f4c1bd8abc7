package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/logging"
)

// newProgress returns a progress bar over the table loads when w is a
// terminal, and nil otherwise.
func newProgress(w io.Writer) catalog.ProgressFunc {
	if !logging.IsTerminal(w) {
		return nil
	}
	return progressTo(w)
}

func progressTo(w io.Writer) catalog.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(stat catalog.TableStat) {
		if bar == nil {
			bar = progressbar.NewOptions(stat.Total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Loading tables"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(w)
				}),
			)
		}
		bar.Describe(fmt.Sprintf("Loading %-16s", stat.Name))
		_ = bar.Add(1)
	}
}
