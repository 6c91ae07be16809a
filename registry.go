// Copyright (c) 2025 The Corsa Authors
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at corsa.network/bsl11.
//
// Change Date: 2029-1-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package corsa

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides registries for Interpreter and Processor implementations.
//
// The registries are intended to be used by client applications that would
// like to use execution services. For an implementation to be available it
// needs to be registered. Typically, this registration is part of the init
// code of the package providing an implementation. Thus, by including the
// implementation package, implementations become available in these central
// registries.

// InterpreterFactory is the type of a function that creates a new Interpreter
// instance for the given protocol revision.
type InterpreterFactory func(revision Revision) (Interpreter, error)

// ProcessorFactory is the type of a function that creates a new Processor
// using the given interpreter for contract execution.
type ProcessorFactory func(interpreter Interpreter) Processor

// NewInterpreter performs a lookup for the given name (case-insensitive) in
// the registry and creates a new Interpreter for the given revision. An error
// is returned if no factory was registered under the given name.
func NewInterpreter(name string, revision Revision) (Interpreter, error) {
	factory := GetInterpreterFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("interpreter not found: %s", name)
	}
	return factory(revision)
}

// NewProcessor performs a lookup for the given name (case-insensitive) in the
// registry and creates a new Processor driving the given interpreter. An
// error is returned if no factory was registered under the given name.
func NewProcessor(name string, interpreter Interpreter) (Processor, error) {
	processorRegistryLock.Lock()
	factory := processorRegistry[strings.ToLower(name)]
	processorRegistryLock.Unlock()
	if factory == nil {
		return nil, fmt.Errorf("processor not found: %s", name)
	}
	return factory(interpreter), nil
}

// GetInterpreterFactory performs a lookup for the given name
// (case-insensitive) in the registry. The result is nil if no factory was
// registered under the given name.
func GetInterpreterFactory(name string) InterpreterFactory {
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	return interpreterRegistry[strings.ToLower(name)]
}

// GetAllRegisteredInterpreters obtains all registered interpreter factories.
func GetAllRegisteredInterpreters() map[string]InterpreterFactory {
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	return maps.Clone(interpreterRegistry)
}

// RegisterInterpreterFactory registers a new Interpreter implementation to be
// exported for general use in the binary. The name is not case-sensitive. An
// error is returned if a factory was bound to the same name before, or the
// factory is nil. This function is mainly intended to be used by package
// initialization code.
func RegisterInterpreterFactory(name string, factory InterpreterFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	if _, found := interpreterRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	interpreterRegistry[key] = factory
	return nil
}

// RegisterProcessorFactory registers a new Processor implementation to be
// exported for general use in the binary. The name is not case-sensitive. An
// error is returned if a factory was bound to the same name before, or the
// factory is nil.
func RegisterProcessorFactory(name string, factory ProcessorFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	if _, found := processorRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	processorRegistry[key] = factory
	return nil
}

var (
	interpreterRegistry     = map[string]InterpreterFactory{}
	interpreterRegistryLock sync.Mutex

	processorRegistry     = map[string]ProcessorFactory{}
	processorRegistryLock sync.Mutex
)
