package sessions

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/brettbedarf/mtpview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T, files map[string]string) *Memory {
	t.Helper()
	m, err := NewMemory(MemoryConfig{Files: files})
	require.NoError(t, err)
	return m
}

func childNames(t *testing.T, s mtpview.Session, parent mtpview.ObjectID) []string {
	t.Helper()
	ctx := context.Background()
	handles, err := s.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, parent)
	require.NoError(t, err)
	names := make([]string, 0, len(handles))
	for _, id := range handles {
		info, err := s.GetObjectInfo(ctx, id)
		require.NoError(t, err)
		names = append(names, info.Filename)
	}
	return names
}

func findChild(t *testing.T, s mtpview.Session, parent mtpview.ObjectID, name string) mtpview.ObjectID {
	t.Helper()
	ctx := context.Background()
	handles, err := s.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, parent)
	require.NoError(t, err)
	for _, id := range handles {
		info, err := s.GetObjectInfo(ctx, id)
		require.NoError(t, err)
		if info.Filename == name {
			return id
		}
	}
	t.Fatalf("no child %q under %d", name, parent)
	return mtpview.NoObject
}

func TestNewMemory_Defaults(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	ctx := context.Background()

	di, err := m.GetDeviceInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mtpview", di.Manufacturer)
	assert.Equal(t, "Memory Device", di.Model)
	assert.Len(t, di.SerialNumber, 36, "serial is a uuid")

	ids, err := m.GetStorageIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []mtpview.StorageID{MemoryStorageID}, ids)

	si, err := m.GetStorageInfo(ctx, MemoryStorageID)
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultMemoryCapacity), si.MaxCapacity)
	assert.Equal(t, si.MaxCapacity, si.FreeSpaceInBytes)

	assert.Empty(t, childNames(t, m, mtpview.Root))
}

func TestNewMemory_Seed(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{
		"Music/Album/one.mp3": "111",
		"Music/two.mp3":       "22",
		"Photos/":             "",
		"readme.txt":          "hello",
	})

	assert.Equal(t, []string{"Music", "Photos", "readme.txt"}, childNames(t, m, mtpview.Root))
	music := findChild(t, m, mtpview.Root, "Music")
	assert.Equal(t, []string{"Album", "two.mp3"}, childNames(t, m, music))
	photos := findChild(t, m, mtpview.Root, "Photos")
	assert.Empty(t, childNames(t, m, photos))

	readme := findChild(t, m, mtpview.Root, "readme.txt")
	info, err := m.GetObjectInfo(context.Background(), readme)
	require.NoError(t, err)
	assert.Equal(t, mtpview.FormatText, info.ObjectFormat)
	assert.Equal(t, uint64(5), info.ObjectCompressedSize)
	assert.Equal(t, mtpview.Root, info.ParentObject)

	var buf bytes.Buffer
	require.NoError(t, m.GetObject(context.Background(), readme, &buf))
	assert.Equal(t, "hello", buf.String())
}

func TestMemory_TwoPhaseUpload(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	ctx := context.Background()

	noi, err := m.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:             "song.mp3",
		ObjectFormat:         mtpview.FormatMP3,
		ObjectCompressedSize: 4,
	}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)
	assert.Equal(t, MemoryStorageID, noi.StorageID)
	assert.Equal(t, mtpview.Root, noi.ParentObject)

	require.NoError(t, m.SendObject(ctx, strings.NewReader("abcd"), 4))
	assert.ErrorIs(t, m.SendObject(ctx, strings.NewReader("more"), 4), mtpview.ErrNoPendingObject,
		"payload is accepted once per descriptor")

	var buf bytes.Buffer
	require.NoError(t, m.GetObject(ctx, noi.ObjectID, &buf))
	assert.Equal(t, "abcd", buf.String())

	si, err := m.GetStorageInfo(ctx, MemoryStorageID)
	require.NoError(t, err)
	assert.Equal(t, si.MaxCapacity-4, si.FreeSpaceInBytes)
}

func TestMemory_SendObjectWithoutInfo(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	err := m.SendObject(context.Background(), strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, mtpview.ErrNoPendingObject)
}

func TestMemory_FolderHasNoPayload(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	ctx := context.Background()
	_, err := m.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:     "Photos",
		ObjectFormat: mtpview.FormatAssociation,
	}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)

	assert.ErrorIs(t, m.SendObject(ctx, strings.NewReader(""), 0), mtpview.ErrNoPendingObject)
}

func TestMemory_ShortPayload(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	ctx := context.Background()
	_, err := m.SendObjectInfo(ctx, &mtpview.ObjectInfo{Filename: "a.txt", ObjectFormat: mtpview.FormatText, ObjectCompressedSize: 10}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)

	assert.Error(t, m.SendObject(ctx, strings.NewReader("short"), 10))
}

func TestMemory_StoreFull(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(MemoryConfig{Capacity: 8})
	require.NoError(t, err)

	_, err = m.SendObjectInfo(context.Background(), &mtpview.ObjectInfo{
		Filename:             "big.bin",
		ObjectFormat:         mtpview.FormatUndefined,
		ObjectCompressedSize: 9,
	}, mtpview.AnyStorage, mtpview.Root)
	assert.ErrorIs(t, err, mtpview.ErrStoreFull)
	assert.Empty(t, childNames(t, m, mtpview.Root))
}

func TestMemory_PayloadMustMatchAnnouncedSize(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(MemoryConfig{Capacity: 4})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:             "a.txt",
		ObjectFormat:         mtpview.FormatText,
		ObjectCompressedSize: 1,
	}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)
	assert.Error(t, m.SendObject(ctx, strings.NewReader("0123456789"), 10))

	si, err := m.GetStorageInfo(ctx, MemoryStorageID)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), si.FreeSpaceInBytes, "rejected payload uses no space")

	_, err = m.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:             "b.txt",
		ObjectFormat:         mtpview.FormatText,
		ObjectCompressedSize: 5,
	}, mtpview.AnyStorage, mtpview.Root)
	assert.ErrorIs(t, err, mtpview.ErrStoreFull, "capacity checks still hold")
}

func TestMemory_ParentChecks(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{"a.txt": "a"})
	ctx := context.Background()
	file := findChild(t, m, mtpview.Root, "a.txt")

	_, err := m.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, file)
	assert.ErrorIs(t, err, mtpview.ErrNotContainer)
	_, err = m.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, 999)
	assert.ErrorIs(t, err, mtpview.ErrObjectNotFound)
	_, err = m.SendObjectInfo(ctx, &mtpview.ObjectInfo{Filename: "b.txt"}, mtpview.AnyStorage, file)
	assert.ErrorIs(t, err, mtpview.ErrNotContainer)
	_, err = m.SendObjectInfo(ctx, &mtpview.ObjectInfo{Filename: "b.txt"}, 0x00020001, mtpview.Root)
	assert.Error(t, err)
}

func TestMemory_Filters(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{"a.txt": "a", "b.mp3": "b", "Dir/": ""})
	ctx := context.Background()

	handles, err := m.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.FormatMP3, mtpview.Root)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, findChild(t, m, mtpview.Root, "b.mp3"), handles[0])

	handles, err = m.GetObjectHandles(ctx, 0x00020001, mtpview.AllFormats, mtpview.Root)
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestMemory_Rename(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{"a.txt": "a"})
	ctx := context.Background()
	id := findChild(t, m, mtpview.Root, "a.txt")

	require.NoError(t, m.SetObjectProperty(ctx, id, mtpview.PropObjectFilename, "b.txt"))
	info, err := m.GetObjectInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", info.Filename)

	assert.Error(t, m.SetObjectProperty(ctx, id, 0xdc44, "x"))
	assert.ErrorIs(t, m.SetObjectProperty(ctx, 999, mtpview.PropObjectFilename, "x"), mtpview.ErrObjectNotFound)
}

func TestMemory_GetObjectInfoReturnsCopy(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{"a.txt": "a"})
	ctx := context.Background()
	id := findChild(t, m, mtpview.Root, "a.txt")

	info, err := m.GetObjectInfo(ctx, id)
	require.NoError(t, err)
	info.Filename = "mutated"

	again, err := m.GetObjectInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", again.Filename)
}

func TestMemory_DeleteRecursive(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{
		"Music/Album/one.mp3": "111",
		"Music/two.mp3":       "22",
		"keep.txt":            "k",
	})
	ctx := context.Background()
	music := findChild(t, m, mtpview.Root, "Music")
	album := findChild(t, m, music, "Album")

	require.NoError(t, m.DeleteObject(ctx, music))

	assert.Equal(t, []string{"keep.txt"}, childNames(t, m, mtpview.Root))
	_, err := m.GetObjectInfo(ctx, album)
	assert.ErrorIs(t, err, mtpview.ErrObjectNotFound)
	si, err := m.GetStorageInfo(ctx, MemoryStorageID)
	require.NoError(t, err)
	assert.Equal(t, si.MaxCapacity-1, si.FreeSpaceInBytes)

	assert.ErrorIs(t, m.DeleteObject(ctx, music), mtpview.ErrObjectNotFound)
}

func TestMemory_DeletePendingDropsUpload(t *testing.T) {
	t.Parallel()

	m := newMemory(t, nil)
	ctx := context.Background()
	noi, err := m.SendObjectInfo(ctx, &mtpview.ObjectInfo{Filename: "a.txt", ObjectCompressedSize: 1}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)

	require.NoError(t, m.DeleteObject(ctx, noi.ObjectID))
	assert.ErrorIs(t, m.SendObject(ctx, strings.NewReader("a"), 1), mtpview.ErrNoPendingObject)
}

func TestMemory_GetObjectContainer(t *testing.T) {
	t.Parallel()

	m := newMemory(t, map[string]string{"Dir/": ""})
	var buf bytes.Buffer
	err := m.GetObject(context.Background(), findChild(t, m, mtpview.Root, "Dir"), &buf)
	assert.Error(t, err)
}
