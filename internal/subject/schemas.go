package subject

// col is a terse constructor for ParamSpec, keeping the schema table
// below dense and scannable — the table itself is the documentation.
func col(name, sqlColumn string) ParamSpec {
	return ParamSpec{Name: name, SQLColumn: sqlColumn}
}

// DefaultSchemas returns every subject variant named across spec §3.1
// (record graph), §4.B.2 (receipt variant mapping), and §6 (pub/sub
// topics). Grounded on original_source/crates/domains/src/subjects.rs,
// crates/fuel-streams-domains/src/{subjects.rs,receipts/subjects.rs}, and
// crates/fuel-streams-core/src/inputs/subjects.rs, which enumerate this
// same prefix/param/custom-where shape per record variant.
func DefaultSchemas() []*Schema {
	var out []*Schema

	out = append(out, &Schema{
		ID:     "blocks",
		Entity: "Block",
		Prefix: "blocks",
		Params: []ParamSpec{
			col("height", "block_height"),
			col("producer", "producer_address"),
		},
	})

	out = append(out, &Schema{
		ID:     "transactions",
		Entity: "Transaction",
		Prefix: "transactions",
		Params: []ParamSpec{
			col("height", "block_height"),
			col("index", "tx_index"),
			col("tx_id", "tx_id"),
			col("status", "tx_status"),
			col("kind", "type"),
		},
	})

	// Inputs: one schema per variant, custom-where pins input_type.
	inputVariants := []struct {
		variant string
		extra   []ParamSpec
	}{
		{"coin", []ParamSpec{col("owner", "owner"), col("asset", "asset_id")}},
		{"contract", []ParamSpec{col("contract", "contract_id")}},
		{"message", []ParamSpec{col("sender", "sender"), col("recipient", "recipient")}},
	}
	for _, v := range inputVariants {
		out = append(out, &Schema{
			ID:     "inputs_" + v.variant,
			Entity: "Input",
			Prefix: "inputs." + v.variant,
			Params: append([]ParamSpec{
				col("height", "block_height"),
				col("tx_id", "tx_id"),
				col("index", "input_index"),
			}, v.extra...),
			CustomWhere: "input_type = '" + v.variant + "'",
		})
	}

	// Outputs: one schema per variant.
	outputVariants := []struct {
		variant string
		extra   []ParamSpec
	}{
		{"coin", []ParamSpec{col("to", "to_address"), col("asset", "asset_id")}},
		{"contract", []ParamSpec{col("contract", "contract_id")}},
		{"change", []ParamSpec{col("to", "to_address"), col("asset", "asset_id")}},
		{"variable", []ParamSpec{col("to", "to_address"), col("asset", "asset_id")}},
		{"contract_created", []ParamSpec{col("contract", "contract_id")}},
	}
	for _, v := range outputVariants {
		out = append(out, &Schema{
			ID:     "outputs_" + v.variant,
			Entity: "Output",
			Prefix: "outputs." + v.variant,
			Params: append([]ParamSpec{
				col("height", "block_height"),
				col("tx_id", "tx_id"),
				col("index", "output_index"),
			}, v.extra...),
			CustomWhere: "output_type = '" + v.variant + "'",
		})
	}

	// Receipts: variant-dependent param subset per §4.B.2.
	receiptVariants := []struct {
		variant string
		extra   []ParamSpec
	}{
		{"call", []ParamSpec{col("from", "from_contract"), col("to", "to_contract"), col("asset", "asset_id")}},
		{"return", nil},
		{"return_data", nil},
		{"panic", nil},
		{"revert", nil},
		{"log", nil},
		{"log_data", nil},
		{"transfer", []ParamSpec{col("from", "from_contract"), col("to", "to_contract"), col("asset", "asset_id")}},
		{"transfer_out", []ParamSpec{col("from", "from_contract"), col("to", "to_address"), col("asset", "asset_id")}},
		{"script_result", nil},
		{"message_out", []ParamSpec{col("sender", "sender"), col("recipient", "recipient")}},
		{"mint", []ParamSpec{col("contract", "contract_id"), col("sub_id", "sub_id")}},
		{"burn", []ParamSpec{col("contract", "contract_id"), col("sub_id", "sub_id")}},
	}
	for _, v := range receiptVariants {
		out = append(out, &Schema{
			ID:     "receipts_" + v.variant,
			Entity: "Receipt",
			Prefix: "receipts." + v.variant,
			Params: append([]ParamSpec{
				col("height", "block_height"),
				col("tx_id", "tx_id"),
				col("index", "receipt_index"),
			}, v.extra...),
			CustomWhere: "receipt_type = '" + v.variant + "'",
		})
	}

	out = append(out, &Schema{
		ID:     "utxos",
		Entity: "Utxo",
		Prefix: "utxos",
		Params: []ParamSpec{
			col("height", "block_height"),
			col("tx_id", "tx_id"),
			col("utxo_type", "utxo_type"),
		},
	})

	out = append(out, &Schema{
		ID:     "predicates",
		Entity: "Predicate",
		Prefix: "predicates",
		Params: []ParamSpec{
			col("address", "predicate_address"),
		},
	})

	out = append(out, &Schema{
		ID:     "messages",
		Entity: "Message",
		Prefix: "messages",
		Params: []ParamSpec{
			col("sender", "sender"),
			col("recipient", "recipient"),
		},
	})

	return out
}

// NewDefaultRegistry builds the registry of every record's subject
// variants. Constructed once at process start by both the executor and
// the stream engine, so a schema-definition bug (duplicate id, ambiguous
// overlap) fails fast at boot rather than at first use.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultSchemas())
}
