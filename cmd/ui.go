package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/ragask/pkg/rag"
)

var stageLabels = map[rag.Stage]string{
	rag.StageInitialChat:   "Asking the model...",
	rag.StageEmbed:         "Embedding the similarity query...",
	rag.StageRetrieve:      "Searching the vector store...",
	rag.StageAugmentedChat: "Asking again with context...",
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func newBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// stageSpinners shows a spinner on w while each stage runs. Stage calls
// block, so the spinner is advanced from a ticker.
func stageSpinners(w io.Writer) func(rag.Stage) func(error) {
	return func(stage rag.Stage) func(error) {
		bar := newSpinner(w, stageLabels[stage])
		stop := make(chan struct{})
		stopped := make(chan struct{})

		go func() {
			defer close(stopped)
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					bar.Add(1)
				}
			}
		}()

		return func(err error) {
			close(stop)
			<-stopped
			bar.Finish()
			if err != nil {
				fmt.Fprintln(w, color.RedString("✗ %s", stageLabels[stage]))
			}
		}
	}
}

// ingestProgress renders a page counter while scraping and a bar while
// storing. It is inert when disabled.
type ingestProgress struct {
	w       io.Writer
	enabled bool
	pages   int
	scrape  *progressbar.ProgressBar
	store   *progressbar.ProgressBar
}

func newIngestProgress(w io.Writer, enabled bool) *ingestProgress {
	return &ingestProgress{w: w, enabled: enabled}
}

func (p *ingestProgress) page(url string) {
	if !p.enabled {
		return
	}
	if p.scrape == nil {
		p.scrape = newSpinner(p.w, "Scraping...")
	}
	p.pages++
	p.scrape.Describe(color.CyanString("Scraping (%d pages) %s", p.pages, url))
	p.scrape.Add(1)
}

func (p *ingestProgress) batch(written, total int) {
	if !p.enabled {
		return
	}
	if p.scrape != nil {
		p.scrape.Finish()
		p.scrape = nil
		fmt.Fprintln(p.w, color.GreenString("✓ Scraped %d pages", p.pages))
	}
	if p.store == nil {
		p.store = newBar(p.w, total, "Storing embeddings...")
	}
	p.store.Set(written)
}

func (p *ingestProgress) finish() {
	if p.scrape != nil {
		p.scrape.Finish()
	}
	if p.store != nil {
		p.store.Finish()
		fmt.Fprintln(p.w)
	}
}
