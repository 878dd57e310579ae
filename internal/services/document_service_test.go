package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shelterfund/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRegistry_Attach(t *testing.T) {
	registry := NewDocumentRegistry(testLoanConfig())

	t.Run("attach to empty draft", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeRent}

		stored := &StoredFile{URL: "/static/documents/abc.pdf", StoredAt: time.Now()}
		doc, replaced, err := registry.Attach(draft, "government_id", "passport.pdf", stored)
		require.NoError(t, err)
		assert.Nil(t, replaced)

		assert.NotEmpty(t, doc.DocumentID)
		assert.Equal(t, "government_id", doc.DocumentType)
		assert.Equal(t, stored.URL, doc.DocumentURL)
		assert.Equal(t, "passport.pdf", doc.FileName)
		assert.Equal(t, doc, draft.Documents["government_id"])
	})

	t.Run("re-upload replaces and reports previous entry", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeRent}

		first := &StoredFile{URL: "/static/documents/first.pdf", StoredAt: time.Now().Add(-time.Minute)}
		_, _, err := registry.Attach(draft, "proof_of_income", "payslip-jan.pdf", first)
		require.NoError(t, err)

		second := &StoredFile{URL: "/static/documents/second.pdf", StoredAt: time.Now()}
		doc, replaced, err := registry.Attach(draft, "proof_of_income", "payslip-feb.pdf", second)
		require.NoError(t, err)

		require.NotNil(t, replaced)
		assert.Equal(t, first.URL, replaced.DocumentURL)
		assert.Equal(t, second.URL, doc.DocumentURL)
		assert.Len(t, draft.Documents, 1)
		assert.Equal(t, "payslip-feb.pdf", draft.Documents["proof_of_income"].FileName)
	})

	t.Run("stale upload keeps the newer entry", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeRent}

		current := &StoredFile{URL: "/static/documents/current.pdf", StoredAt: time.Now()}
		kept, _, err := registry.Attach(draft, "bank_statement", "statement-new.pdf", current)
		require.NoError(t, err)

		stale := &StoredFile{URL: "/static/documents/stale.pdf", StoredAt: time.Now().Add(-time.Hour)}
		doc, replaced, err := registry.Attach(draft, "bank_statement", "statement-old.pdf", stale)
		require.NoError(t, err)

		assert.Nil(t, replaced)
		assert.Equal(t, kept, doc)
		assert.Equal(t, current.URL, draft.Documents["bank_statement"].DocumentURL)
	})

	t.Run("document type outside the purpose's set is rejected", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeRent}

		stored := &StoredFile{URL: "/static/documents/title.pdf", StoredAt: time.Now()}
		_, _, err := registry.Attach(draft, "land_title_document", "title.pdf", stored)
		assert.ErrorIs(t, err, ErrUnsupportedDocumentType)
		assert.Empty(t, draft.Documents)
	})

	t.Run("land purpose accepts land title", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeLand}

		stored := &StoredFile{URL: "/static/documents/title.pdf", StoredAt: time.Now()}
		_, _, err := registry.Attach(draft, "land_title_document", "title.pdf", stored)
		assert.NoError(t, err)
	})
}

func TestDocumentRegistry_Detach(t *testing.T) {
	registry := NewDocumentRegistry(testLoanConfig())

	t.Run("detach returns the removed entry", func(t *testing.T) {
		draft := completeRentDraft()

		removed := registry.Detach(draft, "tenancy_agreement")
		require.NotNil(t, removed)
		assert.Equal(t, "tenancy_agreement", removed.DocumentType)
		assert.NotContains(t, draft.Documents, "tenancy_agreement")
	})

	t.Run("detach of absent type is a no-op", func(t *testing.T) {
		draft := &models.Draft{LoanPurpose: models.PurposeRent}

		assert.Nil(t, registry.Detach(draft, "government_id"))
		assert.Nil(t, registry.Detach(draft, "never_attached"))
	})

	t.Run("detach twice stays idempotent", func(t *testing.T) {
		draft := completeRentDraft()

		require.NotNil(t, registry.Detach(draft, "government_id"))
		assert.Nil(t, registry.Detach(draft, "government_id"))
	})
}

func TestDiskStorage(t *testing.T) {
	dir := t.TempDir()

	storage, err := NewDiskStorage(dir, "/static/documents/")
	require.NoError(t, err)

	t.Run("store writes the file and returns its URL", func(t *testing.T) {
		content := []byte("%PDF-1.4 fake statement")
		stored, err := storage.Store(context.Background(), "statement.pdf", bytes.NewReader(content))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(stored.URL, "/static/documents/"))
		assert.True(t, strings.HasSuffix(stored.URL, ".pdf"))
		assert.WithinDuration(t, time.Now(), stored.StoredAt, 5*time.Second)

		onDisk, err := os.ReadFile(filepath.Join(dir, filepath.Base(stored.URL)))
		require.NoError(t, err)
		assert.Equal(t, content, onDisk)
	})

	t.Run("stored names never collide", func(t *testing.T) {
		a, err := storage.Store(context.Background(), "id.pdf", strings.NewReader("a"))
		require.NoError(t, err)
		b, err := storage.Store(context.Background(), "id.pdf", strings.NewReader("b"))
		require.NoError(t, err)
		assert.NotEqual(t, a.URL, b.URL)
	})

	t.Run("remove deletes the backing file", func(t *testing.T) {
		stored, err := storage.Store(context.Background(), "doc.pdf", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, storage.Remove(context.Background(), stored.URL))
		_, statErr := os.Stat(filepath.Join(dir, filepath.Base(stored.URL)))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("remove of a missing file succeeds", func(t *testing.T) {
		assert.NoError(t, storage.Remove(context.Background(), "/static/documents/gone.pdf"))
	})
}
