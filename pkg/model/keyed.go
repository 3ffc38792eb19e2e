package model

import "fmt"

// SetValuesKeyed is SetValues that also writes key, typically
// ManagementServer.ParameterKey, in the same commit. The key is written
// with device origin, so it may be read-only, and only if the batch is
// applied.
func (t *Tree) SetValuesKeyed(values []ParameterValue, key ParameterValue) error {
	return t.setBatch(values, OriginManagement, &key)
}

// AddObjectKeyed is AddObject that also writes key in the same commit.
func (t *Tree) AddObjectKeyed(path string, key ParameterValue) (uint32, error) {
	row, err := t.addObject(path, OriginManagement, &key)
	if err != nil {
		return 0, err
	}
	return row.instance, nil
}

// DeleteObjectKeyed is DeleteObject that also writes key in the same
// commit.
func (t *Tree) DeleteObjectKeyed(path string, key ParameterValue) error {
	return t.deleteObject(path, OriginManagement, &key)
}

// keyWrite is a validated key assignment waiting for its operation to
// succeed.
type keyWrite struct {
	param *Parameter
	value any
}

// prepareKeyLocked validates key before the keyed operation runs. A nil key
// yields a nil keyWrite.
func (t *Tree) prepareKeyLocked(key *ParameterValue) (*keyWrite, error) {
	if key == nil {
		return nil, nil
	}
	p, err := t.resolveParameter(key.Path)
	if err != nil {
		return nil, newFault(key.Path, fmt.Errorf("parameter key: %w", err))
	}
	v, err := p.def.Validate(key.Value)
	if err != nil {
		return nil, newFault(key.Path, fmt.Errorf("parameter key: %w", err))
	}
	return &keyWrite{param: p, value: v}, nil
}

// apply assigns the key and appends its change. Called with the write lock
// held after the keyed operation succeeded.
func (kw *keyWrite) apply(changes []Change) []Change {
	if kw == nil || kw.param.node.detached {
		return changes
	}
	if c, ok := kw.param.assign(kw.value, OriginDevice); ok {
		changes = append(changes, c)
	}
	return changes
}
