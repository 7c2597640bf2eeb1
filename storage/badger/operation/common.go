package operation

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/commonfund/commonfund/module/irrecoverable"
	"github.com/commonfund/commonfund/storage"
)

// insert will encode the given entity using msgpack and will insert the
// resulting binary data in the badger DB under the provided key. It
// will error with storage.ErrAlreadyExists if the key already exists.
func insert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		// check if the key already exists in the db
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return irrecoverable.NewExceptionf("could not check key: %w", err)
		}

		// serialize the entity data
		val, err := msgpack.Marshal(entity)
		if err != nil {
			return irrecoverable.NewExceptionf("could not encode entity: %w", err)
		}

		// persist the entity data into the DB
		err = tx.Set(key, val)
		if err != nil {
			return irrecoverable.NewExceptionf("could not store data: %w", err)
		}

		return nil
	}
}

// update will encode the given entity with msgpack and update the
// binary data under the given key in the badger DB. It will error with
// storage.ErrNotFound if the key does not exist yet.
func update(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		// retrieve the item from the key-value store
		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return irrecoverable.NewExceptionf("could not check key: %w", err)
		}

		// serialize the entity data
		val, err := msgpack.Marshal(entity)
		if err != nil {
			return irrecoverable.NewExceptionf("could not encode entity: %w", err)
		}

		// persist the entity data into the DB
		err = tx.Set(key, val)
		if err != nil {
			return irrecoverable.NewExceptionf("could not replace data: %w", err)
		}

		return nil
	}
}

// upsert will encode the given entity with msgpack and write it under
// the given key, regardless of whether the key exists already.
func upsert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		val, err := msgpack.Marshal(entity)
		if err != nil {
			return irrecoverable.NewExceptionf("could not encode entity: %w", err)
		}

		err = tx.Set(key, val)
		if err != nil {
			return irrecoverable.NewExceptionf("could not store data: %w", err)
		}

		return nil
	}
}

// remove removes the entity with the given key. It errors with
// storage.ErrNotFound if the key does not exist.
func remove(key []byte) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return irrecoverable.NewExceptionf("could not check key: %w", err)
		}

		err = tx.Delete(key)
		if err != nil {
			return irrecoverable.NewExceptionf("could not delete data: %w", err)
		}

		return nil
	}
}

// retrieve will retrieve the binary data under the given key from the
// badger DB and decode it into the given entity. The provided entity
// needs to be a pointer to an initialized entity of the correct type.
// It errors with storage.ErrNotFound if the key does not exist.
func retrieve(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		// retrieve the item from the key-value store
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return irrecoverable.NewExceptionf("could not load data: %w", err)
		}

		// get the value from the item and decode the entity
		err = item.Value(func(val []byte) error {
			err := msgpack.Unmarshal(val, entity)
			if err != nil {
				return irrecoverable.NewExceptionf("could not decode entity: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		return nil
	}
}

// exists checks whether an entry with the given key exists in the DB
// and writes the result into the provided boolean pointer.
func exists(key []byte, result *bool) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			*result = false
			return nil
		}
		if err != nil {
			return irrecoverable.NewExceptionf("could not check existence: %w", err)
		}

		*result = true
		return nil
	}
}

// checkFunc is called during key iteration through the badger DB in
// order to check whether we should process the given key-value pair.
type checkFunc func(key []byte) bool

// createFunc returns a pointer to an initialized entity that we can
// decode the next value into during a badger DB iteration.
type createFunc func() interface{}

// handleFunc starts the processing of the current key-value pair during
// a badger iteration. It is called after the key was checked and the
// entity was decoded.
type handleFunc func() error

// iterationFunc is provided to the traversal to inject a function to
// check the key, a function to create the decode target and a function
// to process the current key-value pair. This lets the consumer decide
// when to skip the loading of values and the processing of entries.
type iterationFunc func() (checkFunc, createFunc, handleFunc)

// traverse iterates over all keys with the given prefix, calling the
// iteration function for each of them. Errors returned from the
// iteration function abort the traversal and propagate to the caller.
func traverse(prefix []byte, iteration iterationFunc) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		if len(prefix) == 0 {
			return fmt.Errorf("prefix must not be empty")
		}

		opts := badger.DefaultIteratorOptions
		// NOTE: this is an optimization only; it does not enforce that
		// all keys in the iteration have this prefix.
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {

			item := it.Item()

			check, create, handle := iteration()

			key := item.Key()
			if !check(key) {
				continue
			}

			entity := create()
			err := item.Value(func(val []byte) error {
				err := msgpack.Unmarshal(val, entity)
				if err != nil {
					return irrecoverable.NewExceptionf("could not decode entity: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			err = handle()
			if err != nil {
				return fmt.Errorf("could not handle entity: %w", err)
			}
		}

		return nil
	}
}

// retrieveCounter reads the counter under the given key, treating a
// missing key as zero.
func retrieveCounter(key []byte, counter *uint64) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		err := retrieve(key, counter)(tx)
		if errors.Is(err, storage.ErrNotFound) {
			*counter = 0
			return nil
		}
		return err
	}
}
