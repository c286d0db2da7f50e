package devserver

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	errEmailTaken      = errors.New("email already registered")
	errBadCredentials  = errors.New("invalid email or password")
	errCosmeticMissing = errors.New("cosmetic not found")
)

type user struct {
	ID           int64
	Email        string
	Name         string
	Age          int
	Gender       string
	PasswordHash []byte
}

type storedPhoto struct {
	Key          string
	OriginalName string
	MIMEType     string
	Hash         string
	Data         []byte
}

type storedCosmetic struct {
	ID        int64
	OwnerID   int64
	Name      string
	CreatedAt time.Time
	Photos    []storedPhoto
}

// catalog is the in-memory state behind the development server.
type catalog struct {
	mu        sync.RWMutex
	cost      int
	nextUser  int64
	nextItem  int64
	users     map[int64]*user
	byEmail   map[string]int64
	cosmetics map[int64]*storedCosmetic
	photos    map[string]*storedPhoto
	now       func() time.Time
}

func newCatalog(cost int, now func() time.Time) *catalog {
	return &catalog{
		cost:      cost,
		users:     make(map[int64]*user),
		byEmail:   make(map[string]int64),
		cosmetics: make(map[int64]*storedCosmetic),
		photos:    make(map[string]*storedPhoto),
		now:       now,
	}
}

func (c *catalog) addUser(name, email, password string, age int, gender string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byEmail[email]; ok {
		return nil, errEmailTaken
	}
	c.nextUser++
	u := &user{ID: c.nextUser, Email: email, Name: name, Age: age, Gender: gender, PasswordHash: hash}
	c.users[u.ID] = u
	c.byEmail[email] = u.ID
	return u, nil
}

func (c *catalog) authenticate(email, password string) (*user, error) {
	c.mu.RLock()
	id, ok := c.byEmail[strings.ToLower(strings.TrimSpace(email))]
	u := c.users[id]
	c.mu.RUnlock()
	if !ok {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return u, nil
}

func (c *catalog) userByID(subject string) (*user, bool) {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

type incomingPhoto struct {
	OriginalName string
	MIMEType     string
	Data         []byte
}

func (c *catalog) addCosmetic(ownerID int64, name string, uploads []incomingPhoto) *storedCosmetic {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextItem++
	item := &storedCosmetic{
		ID:        c.nextItem,
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: c.now().UTC(),
		Photos:    make([]storedPhoto, 0, len(uploads)),
	}
	for i, up := range uploads {
		sum := sha1.Sum(up.Data)
		photo := storedPhoto{
			Key:          fmt.Sprintf("cosmetics/%d/%d/%d.jpg", ownerID, item.ID, i+1),
			OriginalName: up.OriginalName,
			MIMEType:     up.MIMEType,
			Hash:         hex.EncodeToString(sum[:]),
			Data:         up.Data,
		}
		item.Photos = append(item.Photos, photo)
		c.photos[photo.Key] = &item.Photos[len(item.Photos)-1]
	}
	c.cosmetics[item.ID] = item
	return item
}

// match finds the cosmetic holding a photo with identical bytes.
func (c *catalog) match(data []byte) (*storedCosmetic, bool) {
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])

	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.cosmetics))
	for id := range c.cosmetics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		item := c.cosmetics[id]
		for _, photo := range item.Photos {
			if photo.Hash == hash {
				return item, true
			}
		}
	}
	return nil, false
}

func (c *catalog) listByOwner(ownerID int64) []*storedCosmetic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var items []*storedCosmetic
	for _, item := range c.cosmetics {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items
}

func (c *catalog) get(ownerID int64, rawID string) (*storedCosmetic, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, errCosmeticMissing
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.cosmetics[id]
	if !ok || item.OwnerID != ownerID {
		return nil, errCosmeticMissing
	}
	return item, nil
}

func (c *catalog) photo(key string) (*storedPhoto, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.photos[strings.TrimPrefix(key, "/")]
	return p, ok
}
