package galleri

import "sync"

// Catalog holds the loaded albums. It is safe for concurrent use and may be
// replaced wholesale while being read.
type Catalog struct {
	mu     sync.RWMutex
	albums []*PopulatedAlbum
	byID   map[int]*PopulatedAlbum
}

// NewCatalog returns a Catalog holding albums.
func NewCatalog(albums []*PopulatedAlbum) *Catalog {
	c := &Catalog{}
	c.Replace(albums)
	return c
}

// Replace swaps in a freshly loaded set of albums.
func (c *Catalog) Replace(albums []*PopulatedAlbum) {
	byID := make(map[int]*PopulatedAlbum, len(albums))
	for _, pa := range albums {
		byID[pa.Album.ID] = pa
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.albums = albums
	c.byID = byID
}

// Albums returns every album, in index order, without photos.
func (c *Catalog) Albums() []Album {
	c.mu.RLock()
	defer c.mu.RUnlock()

	as := make([]Album, len(c.albums))
	for i, pa := range c.albums {
		as[i] = pa.Album
	}
	return as
}

// Populated returns every album with its photos.
func (c *Catalog) Populated() []*PopulatedAlbum {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*PopulatedAlbum(nil), c.albums...)
}

// Album returns the album with the given id.
func (c *Catalog) Album(id int) (*PopulatedAlbum, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pa, ok := c.byID[id]
	return pa, ok
}
