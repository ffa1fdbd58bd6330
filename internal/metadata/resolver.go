package metadata

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultLookupTimeout = 10 * time.Second

// Resolver queries providers in order and returns the first hit.
// It never fails: every upstream problem is logged and reported as nil.
type Resolver struct {
	providers []Provider
	timeout   time.Duration
	log       logrus.FieldLogger
}

func NewResolver(timeout time.Duration, log logrus.FieldLogger, providers ...Provider) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{providers: providers, timeout: timeout, log: log}
}

// FetchByISBN returns metadata for isbn, or nil when no provider answered
// within the lookup timeout.
func (r *Resolver) FetchByISBN(ctx context.Context, isbn string) *BookMetadata {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, p := range r.providers {
		md, err := p.LookupISBN(ctx, isbn)
		if err == nil && md != nil {
			md.Source = p.Name()
			return md
		}

		entry := r.log.WithFields(logrus.Fields{"provider": p.Name(), "isbn": isbn})
		if errors.Is(err, ErrNotFound) {
			entry.Debug("isbn not found")
		} else {
			entry.WithError(err).Warn("metadata lookup failed")
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// FetchOrPlaceholder resolves isbn and falls back to a placeholder record.
// The boolean reports whether real metadata was found.
func (r *Resolver) FetchOrPlaceholder(ctx context.Context, isbn string) (*BookMetadata, bool) {
	if md := r.FetchByISBN(ctx, isbn); md != nil {
		return md, true
	}
	return Placeholder(strings.TrimSpace(isbn)), false
}
