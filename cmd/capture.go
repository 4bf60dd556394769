package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/storage"
)

// capture opens a tab, loads url in it when not empty, and persists what
// render returns for the tab to output.
func capture(
	gs *globalState, flags *pflag.FlagSet, url, output string, viewport common.Viewport,
	render func(*common.Session) ([]byte, error),
) error {
	persister, err := storage.NewFilePersister(gs.fs, gs.lookupEnv)
	if err != nil {
		return withExitCode(err)
	}

	b, err := startBrowser(gs, flags)
	if err != nil {
		return err
	}
	defer b.Close()

	tab, err := b.NewTab("")
	if err != nil {
		return withExitCode(err)
	}
	if viewport.Width > 0 && viewport.Height > 0 {
		if err := tab.SetViewport(viewport); err != nil {
			return withExitCode(err)
		}
	}
	if url != "" {
		if err := tab.Navigate(url); err != nil {
			return withExitCode(err)
		}
		if err := tab.WaitUntilNavigated(); err != nil {
			return withExitCode(err)
		}
	}

	start := time.Now()
	data, err := render(tab)
	if err != nil {
		return withExitCode(err)
	}
	gs.logger.WithField("took", time.Since(start)).Debugf("rendered %d bytes", len(data))

	if err := persister.Persist(gs.ctx, output, bytes.NewReader(data)); err != nil {
		return withExitCode(fmt.Errorf("saving %s: %w", output, err))
	}
	gs.console.Printf("saved %s\n", output)

	return nil
}

type cmdScreenshot struct {
	gs *globalState

	output         string
	format         string
	quality        int64
	omitBackground bool
	width, height  float64
	scale          float64
}

func (c *cmdScreenshot) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&c.output, "output", "o", "screenshot.png", "path of the captured image")
	flags.StringVar(&c.format, "format", "", "png or jpeg, guessed from the output path when empty")
	flags.Int64Var(&c.quality, "quality", 0, "JPEG quality, 0-100")
	flags.BoolVar(&c.omitBackground, "omit-background", false, "make the default white background transparent")
	flags.Float64Var(&c.width, "width", 0, "viewport width")
	flags.Float64Var(&c.height, "height", 0, "viewport height")
	flags.Float64Var(&c.scale, "scale", 1, "device scale factor")
	return flags
}

func (c *cmdScreenshot) options() (*common.ScreenshotOptions, error) {
	opts := common.NewScreenshotOptions()
	format := c.format
	if format == "" {
		format = formatFromPath(c.output)
	}
	f, err := common.ParseImageFormat(format)
	if err != nil {
		return nil, err
	}
	if c.quality < 0 || c.quality > 100 {
		return nil, fmt.Errorf("quality %d is not between 0 and 100", c.quality)
	}
	opts.Format = f
	opts.Quality = c.quality
	opts.OmitBackground = c.omitBackground

	return opts, nil
}

func (c *cmdScreenshot) run(cmd *cobra.Command, args []string) error {
	opts, err := c.options()
	if err != nil {
		return withInvalidConfig(err)
	}
	var url string
	if len(args) > 0 {
		url = args[0]
	}
	viewport := common.Viewport{Width: c.width, Height: c.height, Scale: c.scale}

	return capture(c.gs, cmd.Flags(), url, c.output, viewport, func(tab *common.Session) ([]byte, error) {
		return tab.CaptureScreenshot(opts)
	})
}

func getCmdScreenshot(gs *globalState) *cobra.Command {
	c := &cmdScreenshot{gs: gs}

	screenshotCmd := &cobra.Command{
		Use:   "screenshot [url]",
		Short: "Capture a page as an image",
		Long: `Capture a page as an image.

The image is written to the local disk, or uploaded when
CDPDRIVER_ARTIFACTS_OUTPUT configures a remote location.`,
		Example: `
  cdpdriver screenshot https://example.com -o example.jpg --quality 80 --width 1280 --height 720`[1:],
		Args: rangeArgsWithMsg(0, 1, "optional URL of the page to capture"),
		RunE: c.run,
	}
	screenshotCmd.Flags().SortFlags = false
	screenshotCmd.Flags().AddFlagSet(c.flagSet())
	screenshotCmd.Flags().AddFlagSet(launchFlagSet())

	return screenshotCmd
}

type cmdPDF struct {
	gs *globalState

	output string
	opts   common.PDFOptions
}

func (c *cmdPDF) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&c.output, "output", "o", "page.pdf", "path of the PDF document")
	flags.BoolVar(&c.opts.Landscape, "landscape", false, "landscape paper orientation")
	flags.BoolVar(&c.opts.DisplayHeaderFooter, "header-footer", false, "print the header and footer")
	flags.BoolVar(&c.opts.PrintBackground, "print-background", false, "print background graphics")
	flags.Float64Var(&c.opts.Scale, "scale", 0, "scale of the page rendering, 0 keeps the browser's default")
	flags.Float64Var(&c.opts.PaperWidth, "paper-width", 0, "paper width in inches")
	flags.Float64Var(&c.opts.PaperHeight, "paper-height", 0, "paper height in inches")
	flags.StringVar(&c.opts.PageRanges, "page-ranges", "", "pages to print, e.g. 1-5, 8, 11-13")
	return flags
}

func (c *cmdPDF) run(cmd *cobra.Command, args []string) error {
	var url string
	if len(args) > 0 {
		url = args[0]
	}

	return capture(c.gs, cmd.Flags(), url, c.output, common.Viewport{}, func(tab *common.Session) ([]byte, error) {
		return tab.PrintToPDF(&c.opts)
	})
}

func getCmdPDF(gs *globalState) *cobra.Command {
	c := &cmdPDF{gs: gs}

	pdfCmd := &cobra.Command{
		Use:   "pdf [url]",
		Short: "Print a page as a PDF document",
		Long: `Print a page as a PDF document. Only headless browsers can print.

The document is written to the local disk, or uploaded when
CDPDRIVER_ARTIFACTS_OUTPUT configures a remote location.`,
		Args: rangeArgsWithMsg(0, 1, "optional URL of the page to print"),
		RunE: c.run,
	}
	pdfCmd.Flags().SortFlags = false
	pdfCmd.Flags().AddFlagSet(c.flagSet())
	pdfCmd.Flags().AddFlagSet(launchFlagSet())

	return pdfCmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return common.ImageFormatJPEG.String()
	default:
		return common.ImageFormatPNG.String()
	}
}
