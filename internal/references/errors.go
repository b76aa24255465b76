package references

import "errors"

var errUnbound = errors.New("reference resolver used before Bind")
