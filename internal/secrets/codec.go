package secrets

import (
	"encoding/json"
	"strconv"
)

// The store persists every value as a string; these helpers keep the encoding
// identical across backends.

func encodeAuthz(authz bool) string {
	return strconv.FormatBool(authz)
}

func decodeAuthz(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

func encodeRegistration(reg AppRegistration) (string, error) {
	b, err := json.Marshal(reg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRegistration(raw string) (*AppRegistration, error) {
	var reg AppRegistration
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// valueReader loads a raw value; ok is false when the key is unset.
type valueReader func(key string) (raw string, ok bool, err error)

func readAuthz(get valueReader) (bool, error) {
	raw, ok, err := get(keyAuthz)
	if err != nil {
		return false, &StoreError{Op: "read", Key: keyAuthz, Err: err}
	}
	if !ok {
		return true, nil
	}
	authz, err := decodeAuthz(raw)
	if err != nil {
		return false, &StoreError{Op: "decode", Key: keyAuthz, Err: err}
	}
	return authz, nil
}

func readAppStatus(get valueReader) (AppStatus, error) {
	raw, ok, err := get(keyAppStatus)
	if err != nil {
		return "", &StoreError{Op: "read", Key: keyAppStatus, Err: err}
	}
	if !ok {
		return StatusSetup, nil
	}
	status, err := ParseAppStatus(raw)
	if err != nil {
		return "", &StoreError{Op: "decode", Key: keyAppStatus, Err: err}
	}
	return status, nil
}

func readAppRegistration(get valueReader) (*AppRegistration, error) {
	raw, ok, err := get(keyAppRegistration)
	if err != nil {
		return nil, &StoreError{Op: "read", Key: keyAppRegistration, Err: err}
	}
	if !ok {
		return nil, nil
	}
	reg, err := decodeRegistration(raw)
	if err != nil {
		return nil, &StoreError{Op: "decode", Key: keyAppRegistration, Err: err}
	}
	return reg, nil
}
