package boltstore

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
	bbolt "go.etcd.io/bbolt"
)

// Store wraps a bbolt database and an in-memory cache for ACID persistence.
type Store struct {
	bolt  *bbolt.DB
	cache *gamedb.Database
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketObjects, bucketAttrDefs, bucketPlayers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{
		bolt:  db,
		cache: gamedb.NewDatabase(),
	}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// DB returns the in-memory database cache.
func (s *Store) DB() *gamedb.Database {
	return s.cache
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutObject persists a single object to bbolt (write-through).
func (s *Store) PutObject(obj *gamedb.Object) error {
	data, err := encodeObject(obj)
	if err != nil {
		return fmt.Errorf("boltstore: encode object #%d: %w", obj.DBRef, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Put(refToKey(obj.DBRef), data)
	})
}

// PutObjects persists multiple objects in a single bbolt transaction.
func (s *Store) PutObjects(objs ...*gamedb.Object) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for _, obj := range objs {
			if obj == nil {
				continue
			}
			data, err := encodeObject(obj)
			if err != nil {
				return fmt.Errorf("boltstore: encode object #%d: %w", obj.DBRef, err)
			}
			if err := b.Put(refToKey(obj.DBRef), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteObject removes an object from bbolt.
func (s *Store) DeleteObject(ref gamedb.DBRef) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Delete(refToKey(ref))
	})
}

// PutAttrDef persists an attribute definition.
func (s *Store) PutAttrDef(def *gamedb.AttrDef) error {
	data, err := encodeAttrDef(def)
	if err != nil {
		return fmt.Errorf("boltstore: encode attrdef %d: %w", def.Number, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAttrDefs).Put(intToKey(def.Number), data)
	})
}

// PutMeta persists database metadata (version, nextattr, size, etc.).
func (s *Store) PutMeta() error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		b.Put(keyVersion, intToKey(s.cache.Version))
		b.Put(keyFormat, intToKey(s.cache.Format))
		b.Put(keyFlags, intToKey(s.cache.Flags))
		b.Put(keySize, intToKey(s.cache.Size))
		b.Put(keyNextAttr, intToKey(s.cache.NextAttr))
		b.Put(keyRecordPlayers, intToKey(s.cache.RecordPlayers))
		return nil
	})
}

// ImportFromDatabase bulk-loads an in-memory Database into bbolt, batching
// 1000 objects per transaction.
func (s *Store) ImportFromDatabase(db *gamedb.Database) error {
	s.cache = db

	if err := s.PutMeta(); err != nil {
		return fmt.Errorf("boltstore: import meta: %w", err)
	}

	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttrDefs)
		for _, def := range db.AttrNames {
			data, err := encodeAttrDef(def)
			if err != nil {
				return err
			}
			if err := b.Put(intToKey(def.Number), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: import attrdefs: %w", err)
	}

	batch := make([]*gamedb.Object, 0, 1000)
	count := 0
	for _, obj := range db.Objects {
		batch = append(batch, obj)
		if len(batch) >= 1000 {
			if err := s.writeBatch(batch); err != nil {
				return err
			}
			count += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.writeBatch(batch); err != nil {
			return err
		}
		count += len(batch)
	}

	if err := s.rebuildPlayerIndex(db); err != nil {
		return fmt.Errorf("boltstore: import player index: %w", err)
	}

	log.Printf("boltstore: imported %d objects, %d attr defs", count, len(db.AttrNames))
	return nil
}

// writeBatch writes a batch of objects in a single transaction.
func (s *Store) writeBatch(objs []*gamedb.Object) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for _, obj := range objs {
			data, err := encodeObject(obj)
			if err != nil {
				return fmt.Errorf("encode #%d: %w", obj.DBRef, err)
			}
			if err := b.Put(refToKey(obj.DBRef), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// rebuildPlayerIndex writes all player name→DBRef mappings.
func (s *Store) rebuildPlayerIndex(db *gamedb.Database) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPlayers)
		for _, obj := range db.Objects {
			if obj.ObjType() == gamedb.TypePlayer && !obj.IsGoing() {
				name := strings.ToLower(obj.Name)
				if err := b.Put([]byte(name), refToKey(obj.DBRef)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LoadAll reads the entire bbolt database into the in-memory cache.
func (s *Store) LoadAll() error {
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keyVersion); v != nil {
			s.cache.Version = keyToInt(v)
		}
		if v := b.Get(keyFormat); v != nil {
			s.cache.Format = keyToInt(v)
		}
		if v := b.Get(keyFlags); v != nil {
			s.cache.Flags = keyToInt(v)
		}
		if v := b.Get(keySize); v != nil {
			s.cache.Size = keyToInt(v)
		}
		if v := b.Get(keyNextAttr); v != nil {
			s.cache.NextAttr = keyToInt(v)
		}
		if v := b.Get(keyRecordPlayers); v != nil {
			s.cache.RecordPlayers = keyToInt(v)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: load meta: %w", err)
	}

	err = s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttrDefs)
		return b.ForEach(func(k, v []byte) error {
			def, err := decodeAttrDef(v)
			if err != nil {
				return fmt.Errorf("decode attrdef: %w", err)
			}
			s.cache.AttrNames[def.Number] = def
			s.cache.AttrByName[def.Name] = def
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load attrdefs: %w", err)
	}

	count := 0
	err = s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		return b.ForEach(func(k, v []byte) error {
			obj, err := decodeObject(v)
			if err != nil {
				return fmt.Errorf("decode object: %w", err)
			}
			s.cache.Objects[obj.DBRef] = obj
			count++
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load objects: %w", err)
	}

	log.Printf("boltstore: loaded %d objects, %d attr defs from bolt", count, len(s.cache.AttrNames))
	return nil
}

// LookupPlayer resolves a player name through the secondary index.
func (s *Store) LookupPlayer(name string) (gamedb.DBRef, bool) {
	ref := gamedb.Nothing
	found := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPlayers)
		if v := b.Get([]byte(strings.ToLower(name))); v != nil {
			ref = keyToRef(v)
			found = true
		}
		return nil
	})
	return ref, found
}

// UpdatePlayerIndex updates the player name→DBRef secondary index.
// If oldName is non-empty, the old entry is removed.
func (s *Store) UpdatePlayerIndex(obj *gamedb.Object, oldName string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPlayers)
		if oldName != "" {
			b.Delete([]byte(strings.ToLower(oldName)))
		}
		if obj.ObjType() == gamedb.TypePlayer && !obj.IsGoing() {
			return b.Put([]byte(strings.ToLower(obj.Name)), refToKey(obj.DBRef))
		}
		return nil
	})
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}

// HasData returns true if the bbolt database contains any objects.
func (s *Store) HasData() bool {
	hasData := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if b.Stats().KeyN > 0 {
			hasData = true
		}
		return nil
	})
	return hasData
}
