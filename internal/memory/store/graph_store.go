package store

import (
	"Mnemo_1.0/internal/database/neo4j"
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"strings"
	"unicode"

	neo4jdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jGraphStore is a GraphStore backed by Neo4j. Entities are nodes keyed
// by (name, user_id); the raw predicate text is kept as a relationship
// property so retrieval can return it verbatim.
type Neo4jGraphStore struct {
	client *neo4j.Neo4jClient
}

// NewNeo4jGraphStore creates a Neo4jGraphStore over an initialized client.
func NewNeo4jGraphStore(client *neo4j.Neo4jClient) *Neo4jGraphStore {
	return &Neo4jGraphStore{client: client}
}

// UpsertTriple merges the two entity nodes and the relationship between
// them. Re-asserting an existing triple is a no-op and reports false.
func (s *Neo4jGraphStore) UpsertTriple(ctx context.Context, triple models.Triple) (bool, error) {
	query := `
	MERGE (s:Entity {name: $subject, user_id: $user_id})
	MERGE (o:Entity {name: $object, user_id: $user_id})
	MERGE (s)-[r:` + sanitizeRelType(triple.Predicate) + ` {predicate: $predicate}]->(o)
	ON CREATE SET r.is_new = true
	WITH r, coalesce(r.is_new, false) AS created
	REMOVE r.is_new
	RETURN created
	`
	params := map[string]any{
		"subject":   triple.Subject,
		"object":    triple.Object,
		"predicate": triple.Predicate,
		"user_id":   triple.UserID,
	}

	var records []*neo4jdriver.Record
	err := withRetry(ctx, func() error {
		var qerr error
		records, qerr = s.client.RunCypherQuery(ctx, query, params)
		return qerr
	})
	if err != nil {
		return false, fmt.Errorf("upsert triple %s: %v: %w", triple.Key(), err, models.ErrStoreUnavailable)
	}
	if len(records) == 0 {
		return false, nil
	}
	created, _ := records[0].Get("created")
	flag, _ := created.(bool)
	return flag, nil
}

// Neighborhood returns the distinct triples on any path of up to `hops`
// relationships from the seed entities, ignoring edge direction. The hop
// count is interpolated because Cypher cannot parameterize path lengths.
func (s *Neo4jGraphStore) Neighborhood(ctx context.Context, userID string, entities []string, hops int) ([]models.Triple, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if hops < 1 {
		hops = 1
	}

	query := fmt.Sprintf(`
	MATCH (e:Entity {user_id: $user_id}) WHERE e.name IN $names
	MATCH p = (e)-[*1..%d]-(x)
	UNWIND relationships(p) AS r
	WITH DISTINCT r
	MATCH (s)-[r]->(o)
	WHERE s.user_id = $user_id AND o.user_id = $user_id
	RETURN s.name AS subject, coalesce(r.predicate, type(r)) AS predicate, o.name AS object
	`, hops)
	params := map[string]any{
		"user_id": userID,
		"names":   entities,
	}

	return s.readTriples(ctx, userID, query, params)
}

// GetAll returns every triple of the owner.
func (s *Neo4jGraphStore) GetAll(ctx context.Context, userID string) ([]models.Triple, error) {
	query := `
	MATCH (s:Entity {user_id: $user_id})-[r]->(o:Entity {user_id: $user_id})
	RETURN s.name AS subject, coalesce(r.predicate, type(r)) AS predicate, o.name AS object
	`
	return s.readTriples(ctx, userID, query, map[string]any{"user_id": userID})
}

func (s *Neo4jGraphStore) readTriples(ctx context.Context, userID, query string, params map[string]any) ([]models.Triple, error) {
	var records []*neo4jdriver.Record
	err := withRetry(ctx, func() error {
		var qerr error
		records, qerr = s.client.ReadCypherQuery(ctx, query, params)
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("read triples: %v: %w", err, models.ErrStoreUnavailable)
	}

	triples := make([]models.Triple, 0, len(records))
	for _, record := range records {
		subject, _ := record.Get("subject")
		predicate, _ := record.Get("predicate")
		object, _ := record.Get("object")
		triples = append(triples, models.Triple{
			UserID:    userID,
			Subject:   asString(subject),
			Predicate: asString(predicate),
			Object:    asString(object),
		})
	}
	return triples, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// sanitizeRelType turns free-form predicate text into a legal relationship
// type. The original text survives as the `predicate` property.
func sanitizeRelType(predicate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(predicate)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	relType := strings.Trim(b.String(), "_")
	if relType == "" {
		return "RELATED_TO"
	}
	if unicode.IsDigit(rune(relType[0])) {
		relType = "REL_" + relType
	}
	return relType
}
