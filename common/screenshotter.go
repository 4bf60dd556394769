/*
 *
 * xk6-browser - a browser automation extension for k6
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package common

import (
	"encoding/base64"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/mailru/easyjson"
	"github.com/tidwall/gjson"
)

// ScreenshotOptions are the options of CaptureScreenshot.
type ScreenshotOptions struct {
	Format ImageFormat `json:"type"`
	// Quality of a JPEG capture, 0-100.
	Quality        int64             `json:"quality"`
	Clip           *cdppage.Viewport `json:"clip"`
	FromSurface    bool              `json:"fromSurface"`
	OmitBackground bool              `json:"omitBackground"`
}

// NewScreenshotOptions returns the options used when none are given.
func NewScreenshotOptions() *ScreenshotOptions {
	return &ScreenshotOptions{
		Format:      ImageFormatPNG,
		FromSurface: true,
	}
}

// PDFOptions are the options of PrintToPDF.
type PDFOptions struct {
	Landscape           bool    `json:"landscape" yaml:"landscape"`
	DisplayHeaderFooter bool    `json:"displayHeaderFooter" yaml:"displayHeaderFooter"`
	PrintBackground     bool    `json:"printBackground" yaml:"printBackground"`
	Scale               float64 `json:"scale" yaml:"scale"`
	PaperWidth          float64 `json:"paperWidth" yaml:"paperWidth"`
	PaperHeight         float64 `json:"paperHeight" yaml:"paperHeight"`
	PageRanges          string  `json:"pageRanges" yaml:"pageRanges"`
}

// CaptureScreenshot captures the tab's viewport, or the clip when given.
func (s *Session) CaptureScreenshot(opts *ScreenshotOptions) ([]byte, error) {
	if opts == nil {
		opts = NewScreenshotOptions()
	}

	capture := cdppage.CaptureScreenshot().WithFromSurface(opts.FromSurface)
	switch opts.Format {
	case ImageFormatJPEG:
		capture = capture.WithFormat(cdppage.CaptureScreenshotFormatJpeg)
		if opts.Quality > 0 {
			capture = capture.WithQuality(opts.Quality)
		}
	default:
		capture = capture.WithFormat(cdppage.CaptureScreenshotFormatPng)
	}
	if opts.Clip != nil && opts.Clip.Width > 0 && opts.Clip.Height > 0 {
		clip := *opts.Clip
		if clip.Scale == 0 {
			clip.Scale = 1
		}
		capture = capture.WithClip(&clip)
	}

	// Make background transparent for PNG captures if requested
	transparent := opts.OmitBackground && opts.Format != ImageFormatJPEG
	if transparent {
		action := emulation.SetDefaultBackgroundColorOverride().
			WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0})
		if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
			return nil, fmt.Errorf("setting screenshot background transparency: %w", err)
		}
	}

	buf, err := capture.Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	if transparent {
		action := emulation.SetDefaultBackgroundColorOverride()
		if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
			return nil, fmt.Errorf("resetting screenshot background color: %w", err)
		}
	}

	return buf, nil
}

// PrintToPDF renders the page as a PDF document.
func (s *Session) PrintToPDF(opts *PDFOptions) ([]byte, error) {
	action := cdppage.PrintToPDF()
	if opts != nil {
		action = action.
			WithLandscape(opts.Landscape).
			WithDisplayHeaderFooter(opts.DisplayHeaderFooter).
			WithPrintBackground(opts.PrintBackground)
		if opts.Scale > 0 {
			action = action.WithScale(opts.Scale)
		}
		if opts.PaperWidth > 0 {
			action = action.WithPaperWidth(opts.PaperWidth)
		}
		if opts.PaperHeight > 0 {
			action = action.WithPaperHeight(opts.PaperHeight)
		}
		if opts.PageRanges != "" {
			action = action.WithPageRanges(opts.PageRanges)
		}
	}

	params, err := easyjson.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encoding print options: %w", err)
	}
	res, err := s.CallMethod(s.ctx, cdppage.CommandPrintToPDF, params)
	if err != nil {
		return nil, fmt.Errorf("printing to PDF: %w", err)
	}

	data := gjson.GetBytes(res, "data")
	if !data.Exists() {
		return nil, fmt.Errorf("printing to PDF: no data in result")
	}
	buf, err := base64.StdEncoding.DecodeString(data.String())
	if err != nil {
		return nil, fmt.Errorf("decoding PDF data: %w", err)
	}

	return buf, nil
}
