package repository

import (
	"errors"
	"fmt"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	domainrepo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// ストアのエラーをリポジトリのエラーに揃える
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %v", domainrepo.ErrNotFound, err)
	case errors.Is(err, docstore.ErrAlreadyExists):
		return fmt.Errorf("%w: %v", domainrepo.ErrAlreadyExists, err)
	default:
		return err
	}
}
