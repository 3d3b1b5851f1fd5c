// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package funcutil

import "fmt"

// An Optional holds a value or none. The zero Optional is none.
type Optional[T any] struct {
	value T
	some  bool
}

// Some creates an optional value with some value in it.
func Some[T any](x T) Optional[T] {
	return Optional[T]{value: x, some: true}
}

// None creates an optional value with no value in it
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and true, or the zero value and false if o is none.
func (o Optional[T]) Get() (T, bool) { return o.value, o.some }

func (o Optional[T]) String() string {
	if !o.some {
		return "none"
	}
	return fmt.Sprintf("%v", o.value)
}

// BindOption2 returns f(x, y) when both x and y are some, otherwise none.
func BindOption2[T any, S any, R any](x Optional[T], y Optional[S], f func(T, S) Optional[R]) Optional[R] {
	if x.some && y.some {
		return f(x.value, y.value)
	}
	return None[R]()
}
