// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package packager

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/fsutil"
	"github.com/walteh/guardxfer/pkg/log"
	"github.com/walteh/guardxfer/pkg/metadata"
)

// 🎯 Outcome is how one candidate ended
type Outcome int

const (
	OutcomeNoMetadata Outcome = iota
	OutcomeParseFailed
	OutcomeProductRejected
	OutcomeDissemRejected
	OutcomeZipSkippedFresh
	OutcomeZipFailed
	OutcomePackaged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoMetadata:
		return "no metadata"
	case OutcomeParseFailed:
		return "parse failed"
	case OutcomeProductRejected:
		return "product rejected"
	case OutcomeDissemRejected:
		return "dissem rejected"
	case OutcomeZipSkippedFresh:
		return "zip fresh"
	case OutcomeZipFailed:
		return "zip failed"
	case OutcomePackaged:
		return "packaged"
	default:
		return "unknown"
	}
}

// Processed reports whether the candidate passed the product line check and
// went through the packaging steps
func (o Outcome) Processed() bool {
	return o >= OutcomeDissemRejected
}

// 📦 Packager runs the moveapproved pipeline for one run
type Packager struct {
	rc     *config.RunContext
	remove func(path string) error
}

// 🏭 New creates a packager for the run
func New(rc *config.RunContext) *Packager {
	return &Packager{rc: rc, remove: fsutil.RemoveFile}
}

// 🔎 Scan packages every candidate directly under the dissem dir and returns
// how many it saw. Only a failed listing is an error.
func (p *Packager) Scan(ctx context.Context) (int, error) {
	logger := zerolog.Ctx(ctx)

	candidates, err := fsutil.ListFiltered(p.rc.DissemDir, p.rc.CandidatePattern)
	if err != nil {
		return 0, err
	}

	logger.Info().Int("count", len(candidates)).Str("dir", p.rc.DissemDir).Msg("pre-file count")

	processed := 0
	for _, c := range candidates {
		if p.PackageOne(ctx, c.Path).Processed() {
			processed++
		}
	}

	logger.Info().Int("processed", processed).Int("seen", len(candidates)).Str("dir", p.rc.DissemDir).Msg("moved to reviewed")
	if processed != len(candidates) {
		logger.Info().Msg("some candidates were not processed")
	}
	return len(candidates), nil
}

// 📦 PackageOne runs a single candidate through classification, zip and
// cleanup. Failures stay inside the candidate.
func (p *Packager) PackageOne(ctx context.Context, candidate string) Outcome {
	logger := zerolog.Ctx(ctx).With().Str("file", filepath.Base(candidate)).Logger()
	items := log.FromContext(ctx)

	product := metadata.NewProductFile(candidate, p.rc.ReviewDir, p.rc.DissemDir)
	logger.Debug().
		Str("dir", product.FileDir).
		Str("zip", product.ZipPath).
		Str("xml", product.XMLPath).
		Msg("processing candidate")

	if _, err := fsutil.CheckFile(product.XMLPath); err != nil {
		logger.Warn().Err(err).Msg("no companion metadata")
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionSkipped, Detail: "no metadata"})
		return OutcomeNoMetadata
	}

	if err := product.Parse(); err != nil {
		logger.Error().Err(err).Msg("parsing metadata")
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionFailed, Detail: "bad metadata"})
		return OutcomeParseFailed
	}

	logger.Info().
		Str("product_line", product.ProductLine).
		Int("images", len(product.Images)).
		Int("media", len(product.Media)).
		Msg("metadata parsed")

	if !slices.Contains(p.rc.ProductLines, product.ProductLine) {
		logger.Warn().Str("product_line", product.ProductLine).Msg("product line not allowed")
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionSkipped, Detail: "product " + product.ProductLine})
		return OutcomeProductRejected
	}

	logger.Info().Str("object_id", product.ObjectID).Str("dissem_level", product.DissemLevel).Msg("packaging")

	job := newJob(product)
	job.AddEntry(product.FileName)
	job.AddEntry(product.XMLName)
	job.AddCleanup(filepath.Join(p.rc.DissemDir, product.FileName))
	job.AddCleanup(filepath.Join(p.rc.DissemDir, product.XMLName))

	p.addImages(ctx, job)
	p.addMedia(ctx, job)

	outcome := p.zip(ctx, job)
	if outcome == OutcomeZipFailed {
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionFailed, Detail: "zip"})
		return outcome
	}

	p.cleanup(ctx, job)

	switch outcome {
	case OutcomePackaged:
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionPackaged, Detail: filepath.Base(product.ZipPath)})
	case OutcomeZipSkippedFresh:
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionSkipped, Detail: "zip is newer"})
	case OutcomeDissemRejected:
		items.LogItem(ctx, log.ItemOperation{Name: product.FileName, Action: log.ActionDeleted, Detail: "dissem " + product.DissemLevel})
	}
	return outcome
}

func (p *Packager) addImages(ctx context.Context, job *Job) {
	logger := zerolog.Ctx(ctx)
	for _, image := range job.Product.Images {
		img, thumb := imageEntries(image)
		job.AddEntry(img)
		job.AddEntry(thumb)
		job.AddCleanup(filepath.Join(p.rc.DissemDir, filepath.FromSlash(img)))
		job.AddCleanup(filepath.Join(p.rc.DissemDir, filepath.FromSlash(thumb)))
		logger.Debug().Str("image", img).Str("thumbnail", thumb).Msg("image registered")
	}
}

func (p *Packager) addMedia(ctx context.Context, job *Job) {
	logger := zerolog.Ctx(ctx)
	items := log.FromContext(ctx)
	for _, item := range job.Product.Media {
		name := filepath.Base(item)
		src := filepath.Join(p.rc.DissemDir, attachmentDir, name)

		if p.isPresentation(name) {
			newName := mediaName(job.Product.Org, job.Product.TapeDir, name)
			if _, err := fsutil.MoveFile(src, p.rc.ReviewDir, newName); err != nil {
				logger.Warn().Err(err).Str("media", src).Msg("relocating presentation")
			} else {
				logger.Info().Str("media", src).Str("as", newName).Msg("presentation relocated")
				items.LogItem(ctx, log.ItemOperation{Name: name, Action: log.ActionPackaged, Detail: newName})
			}
		} else {
			job.AddEntry(attachmentDir + "/" + name)
			logger.Debug().Str("media", name).Msg("attachment registered")
		}

		job.AddCleanup(src)
	}
}

func (p *Packager) isPresentation(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range p.rc.PresentationExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// zip builds the archive when the dissem level allows it and the existing zip
// is older than the candidate
func (p *Packager) zip(ctx context.Context, job *Job) Outcome {
	logger := zerolog.Ctx(ctx)
	product := job.Product

	if !slices.Contains(p.rc.DissemLevels, product.DissemLevel) {
		logger.Warn().Str("file", product.FileName).Str("dissem_level", product.DissemLevel).Msg("did not meet dissem level")
		return OutcomeDissemRejected
	}

	if fresh, err := zipIsFresh(product.ZipPath, filepath.Join(product.FileDir, product.FileName)); err == nil && fresh {
		logger.Warn().Str("zip", product.ZipPath).Str("file", product.FileName).Msg("zip is newer than candidate")
		return OutcomeZipSkippedFresh
	}

	if job.Zipped() {
		return OutcomePackaged
	}

	if err := fsutil.MakeZip(product.ZipPath, product.FileDir, job.Entries()); err != nil {
		logger.Error().Err(err).Str("zip", product.ZipPath).Msg("creating zip")
		return OutcomeZipFailed
	}
	job.zipped = true

	logger.Info().Str("zip", product.ZipPath).Int("entries", len(job.entries)).Msg("zip created")
	return OutcomePackaged
}

// zipIsFresh reports whether zipPath exists and is not older than src
func zipIsFresh(zipPath, src string) (bool, error) {
	zi, err := os.Stat(zipPath)
	if err != nil {
		return false, err
	}
	si, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	return !si.ModTime().After(zi.ModTime()), nil
}

// cleanup deletes every registered path that still exists. A failed delete
// is a warning and the rest continue.
func (p *Packager) cleanup(ctx context.Context, job *Job) {
	logger := zerolog.Ctx(ctx)
	for _, path := range job.cleanup {
		if ok, _ := fsutil.CheckFile(path); !ok {
			logger.Debug().Str("path", path).Msg("cleanup target not present")
			continue
		}
		if err := p.remove(path); err != nil {
			logger.Warn().Err(err).Msg("cleanup")
			continue
		}
		logger.Debug().Str("path", path).Msg("cleanup deleted")
	}
}
