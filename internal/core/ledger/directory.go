package ledger

import (
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// VisitOwnedItems walks every entry in an account's owner directory,
// following the page chain from the root. Returning false from fn stops the
// walk.
func (l *Ledger) VisitOwnedItems(owner types.AccountID, fn func(entries.Entry) bool) error {
	rootIndex := keylet.OwnerDir(owner).Key
	currentIndex := rootIndex

	for {
		dir, err := l.GetDirNode(currentIndex)
		if err != nil {
			return err
		}
		if dir == nil {
			return nil
		}

		for _, key := range dir.Indexes {
			e, err := l.GetSLE(key)
			if err != nil {
				return err
			}
			if e != nil && !fn(e) {
				return nil
			}
		}

		if dir.IndexNext == 0 {
			return nil
		}
		currentIndex = keylet.DirPage(rootIndex, dir.IndexNext).Key
	}
}

// VisitAccountItems pages through an account's owner directory.
//
// With a zero startAfter the walk begins at the root page. Otherwise the
// page named by hint is checked for startAfter; when the hint holds it the
// walk resumes there without re-reading earlier pages, and entries up to and
// including startAfter are skipped.
//
// fn returning false stops the walk; limit bounds the number of invocations.
// The return value is true only when the walk ran off the end of the
// directory rather than stopping on fn or the limit.
func (l *Ledger) VisitAccountItems(
	owner types.AccountID,
	startAfter types.Hash256,
	hint uint64,
	limit int,
	fn func(entries.Entry) bool,
) (bool, error) {
	rootIndex := keylet.OwnerDir(owner).Key
	currentIndex := rootIndex

	found := startAfter.IsZero()

	if !found {
		hintIndex := keylet.DirPage(rootIndex, hint).Key
		hintDir, err := l.GetDirNode(hintIndex)
		if err != nil {
			return false, err
		}
		if hintDir != nil {
			for _, key := range hintDir.Indexes {
				if key == startAfter {
					currentIndex = hintIndex
					break
				}
			}
		}
	}

	for {
		dir, err := l.GetDirNode(currentIndex)
		if err != nil {
			return false, err
		}
		if dir == nil {
			return true, nil
		}

		for _, key := range dir.Indexes {
			if !found {
				if key == startAfter {
					found = true
				}
				continue
			}

			if limit <= 0 {
				return false, nil
			}
			e, err := l.GetSLE(key)
			if err != nil {
				return false, err
			}
			if e == nil {
				continue
			}
			if !fn(e) {
				return false, nil
			}
			limit--
		}

		if dir.IndexNext == 0 {
			return true, nil
		}
		currentIndex = keylet.DirPage(rootIndex, dir.IndexNext).Key
	}
}

// OwnerDirDescriber stamps owner-directory fields onto a new page.
func OwnerDirDescriber(owner types.AccountID) func(*entries.DirectoryNode) {
	return func(d *entries.DirectoryNode) {
		d.Owner = owner
	}
}

// QualityDirDescriber stamps book-directory fields onto a new page.
func QualityDirDescriber(book types.Book, rate uint64) func(*entries.DirectoryNode) {
	return func(d *entries.DirectoryNode) {
		d.TakerPaysCurrency = book.In.Currency
		d.TakerPaysIssuer = book.In.Account
		d.TakerGetsCurrency = book.Out.Currency
		d.TakerGetsIssuer = book.Out.Account
		d.ExchangeRate = rate
	}
}

// DirAdd appends itemKey to the directory rooted at dir, creating the root
// or a fresh page as needed, and returns the page the key landed on. The
// root's IndexPrevious tracks the last page of the chain.
func (l *Ledger) DirAdd(dir keylet.Keylet, itemKey types.Hash256, describe func(*entries.DirectoryNode)) (uint64, error) {
	root, err := l.GetDirNode(dir.Key)
	if err != nil {
		return 0, err
	}

	if root == nil {
		page := &entries.DirectoryNode{
			RootIndex: dir.Key,
			Indexes:   []types.Hash256{itemKey},
		}
		if describe != nil {
			describe(page)
		}
		res, err := l.WriteBack(WriteCreate, dir.Key, page)
		if err != nil {
			return 0, err
		}
		if res != WriteCreated {
			return 0, fmt.Errorf("create directory root: unexpected result %v", res)
		}
		return 0, nil
	}

	lastPage := root.IndexPrevious
	nodeKey := dir.Key
	node := root
	if lastPage != 0 {
		nodeKey = keylet.DirPage(dir.Key, lastPage).Key
		node, err = l.GetDirNode(nodeKey)
		if err != nil {
			return 0, err
		}
		if node == nil {
			return 0, fmt.Errorf("directory chain: missing page %d", lastPage)
		}
	}

	if len(node.Indexes) < entries.DirNodeMaxEntries {
		updated := *node
		updated.Indexes = append(append([]types.Hash256{}, node.Indexes...), itemKey)
		if _, err := l.WriteBack(WriteNone, nodeKey, &updated); err != nil {
			return 0, err
		}
		return lastPage, nil
	}

	// Current last page is full: link a new page onto the chain
	newPage := lastPage + 1
	newPageKey := keylet.DirPage(dir.Key, newPage).Key

	fresh := &entries.DirectoryNode{
		RootIndex:     dir.Key,
		Indexes:       []types.Hash256{itemKey},
		IndexPrevious: lastPage,
	}
	if describe != nil {
		describe(fresh)
	}
	if res, err := l.WriteBack(WriteCreate, newPageKey, fresh); err != nil || res != WriteCreated {
		return 0, fmt.Errorf("create directory page %d: %v %v", newPage, res, err)
	}

	if lastPage == 0 {
		// Root is both the full page and the chain head
		updated := *root
		updated.IndexNext = newPage
		updated.IndexPrevious = newPage
		if _, err := l.WriteBack(WriteNone, dir.Key, &updated); err != nil {
			return 0, err
		}
	} else {
		updatedNode := *node
		updatedNode.IndexNext = newPage
		if _, err := l.WriteBack(WriteNone, nodeKey, &updatedNode); err != nil {
			return 0, err
		}

		updatedRoot := *root
		updatedRoot.IndexPrevious = newPage
		if _, err := l.WriteBack(WriteNone, dir.Key, &updatedRoot); err != nil {
			return 0, err
		}
	}
	return newPage, nil
}
