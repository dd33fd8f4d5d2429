package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/canonical"
)

type MerkleSuite struct {
	suite.Suite
	payload models.RenderPayload
}

func TestMerkleSuite(t *testing.T) {
	suite.Run(t, new(MerkleSuite))
}

func (s *MerkleSuite) SetupTest() {
	s.payload = models.RenderPayload{GridSize: 2, GridB64: "AAEC", Palette: json.RawMessage(`["#000","#fff"]`)}
}

func (s *MerkleSuite) TestHashCard() {
	s.Run("matches canonical encoding of the identity fields", func() {
		expected := canonical.SHA256Hex([]byte(
			`{"cardId":"c1","collectionId":"col","collectionVersion":"v1","renderPayload":{"gridB64":"AAEC","gridSize":2,"palette":["#000","#fff"]}}`,
		))
		s.Equal(expected, HashCard("col", "v1", "c1", s.payload))
	})

	s.Run("is stable across calls", func() {
		s.Equal(HashCard("col", "v1", "c1", s.payload), HashCard("col", "v1", "c1", s.payload))
	})

	s.Run("changes when render content changes", func() {
		tampered := s.payload
		tampered.GridB64 = "AAED"
		s.NotEqual(HashCard("col", "v1", "c1", s.payload), HashCard("col", "v1", "c1", tampered))
	})

	s.Run("palette key order does not matter", func() {
		a := models.RenderPayload{GridSize: 1, GridB64: "AA", Palette: json.RawMessage(`{"b":1,"a":2}`)}
		b := models.RenderPayload{GridSize: 1, GridB64: "AA", Palette: json.RawMessage(`{"a":2,"b":1}`)}
		s.Equal(HashCard("col", "v1", "c1", a), HashCard("col", "v1", "c1", b))
	})
}

func (s *MerkleSuite) TestRoot() {
	s.Run("empty list hashes []", func() {
		s.Equal(canonical.SHA256Hex([]byte("[]")), Root(nil))
	})

	s.Run("single leaf is its own root", func() {
		s.Equal("aa", Root([]string{"aa"}))
	})

	s.Run("two leaves hash as one node", func() {
		expected := canonical.SHA256Hex([]byte(`{"left":"aa","right":"bb"}`))
		s.Equal(expected, Root([]string{"aa", "bb"}))
	})

	s.Run("odd level duplicates the last node", func() {
		ab := HashNode("aa", "bb")
		cc := HashNode("cc", "cc")
		s.Equal(HashNode(ab, cc), Root([]string{"aa", "bb", "cc"}))
	})

	s.Run("order sensitive", func() {
		s.NotEqual(Root([]string{"aa", "bb", "cc"}), Root([]string{"bb", "aa", "cc"}))
	})

	s.Run("sensitive to a single element change", func() {
		s.NotEqual(Root([]string{"aa", "bb", "cc", "dd"}), Root([]string{"aa", "bb", "cc", "de"}))
	})

	s.Run("does not mutate input", func() {
		in := []string{"aa", "bb", "cc"}
		_ = Root(in)
		s.Equal([]string{"aa", "bb", "cc"}, in)
	})
}

func (s *MerkleSuite) TestContentsCommitment() {
	root := Root([]string{"aa", "bb"})
	expected := canonical.SHA256Hex([]byte(`{"count":2,"itemHashes":["aa","bb"],"packRoot":"` + root + `"}`))
	s.Equal(expected, ContentsCommitment([]string{"aa", "bb"}, root))
}

func (s *MerkleSuite) TestProofs() {
	leaves := []string{"a1", "b2", "c3", "d4", "e5"}
	root := Root(leaves)

	s.Run("every leaf proves against the root", func() {
		for i, leaf := range leaves {
			proof, err := Prove(leaves, i)
			s.Require().NoError(err)
			s.True(VerifyProof(leaf, proof, root), "leaf %d", i)
		}
	})

	s.Run("wrong leaf fails", func() {
		proof, err := Prove(leaves, 2)
		s.Require().NoError(err)
		s.False(VerifyProof("zz", proof, root))
	})

	s.Run("out of range index errors", func() {
		_, err := Prove(leaves, 5)
		s.Error(err)
		_, err = Prove(leaves, -1)
		s.Error(err)
	})

	s.Run("unknown position fails", func() {
		s.False(VerifyProof("a1", []models.ProofStep{{Hash: "b2", Position: "up"}}, root))
	})
}
