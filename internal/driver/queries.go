package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Entity(uuid);",
	"CREATE INDEX ON :Entity(graph_id);",
}

const (
	SaveEntityNodesQuery = `
		UNWIND $nodes AS node
		MERGE (n:Entity {uuid: node.uuid})
		SET n.graph_id = node.graph_id,
			n.node_id = node.node_id,
			n.name = node.name,
			n.labels = node.labels,
			n.properties = node.properties,
			n.exported_at = node.exported_at
		RETURN count(n) AS saved
	`

	SaveEntityEdgesQuery = `
		UNWIND $edges AS edge
		MATCH (source:Entity {uuid: edge.source_uuid})
		MATCH (target:Entity {uuid: edge.target_uuid})
		MERGE (source)-[e:RELATES_TO {uuid: edge.uuid}]->(target)
		SET e.name = edge.name,
			e.graph_id = edge.graph_id,
			e.properties = edge.properties
		RETURN count(e) AS saved
	`

	DeleteGraphQuery = `
		MATCH (n:Entity {graph_id: $graph_id})
		DETACH DELETE n
	`

	GetGraphNodesQuery = `
		MATCH (n:Entity {graph_id: $graph_id})
		RETURN n.node_id AS node_id, n.labels AS labels, n.properties AS properties
		ORDER BY n.node_id
	`

	GetGraphEdgesQuery = `
		MATCH (s:Entity {graph_id: $graph_id})-[e:RELATES_TO]->(t:Entity {graph_id: $graph_id})
		RETURN e.name AS name, s.node_id AS source_id, t.node_id AS target_id, e.properties AS properties
		ORDER BY e.uuid
	`
)
