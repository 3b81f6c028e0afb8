package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserPool_LeaseIsReturned(t *testing.T) {
	pool := newParserPool(pythonLanguage())

	sp := pool.acquire()
	require.NotNil(t, sp)
	assert.Equal(t, 1, pool.inUse())

	pool.release(sp)
	assert.Zero(t, pool.inUse())

	pool.release(nil)
	assert.Zero(t, pool.inUse())
}

func TestParserPool_ParsesPython(t *testing.T) {
	pool := newParserPool(pythonLanguage())

	tree := pool.parse([]byte("from os import *\n"))
	require.NotNil(t, tree)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "module", root.Kind())
	assert.Equal(t, "import_from_statement", root.Child(0).Kind())
	assert.Zero(t, pool.inUse())
}

func TestParserPool_ConcurrentParses(t *testing.T) {
	pool := newParserPool(pythonLanguage())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree := pool.parse([]byte("class A:\n    x = 1\n"))
			if assert.NotNil(t, tree) {
				assert.False(t, tree.RootNode().HasError())
				tree.Close()
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, pool.inUse())
}
