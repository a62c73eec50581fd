package server

// EmbeddingScript is the Python entry point cmd/codesearch-embed writes to a
// temp file and runs under the embedded interpreter (go-embed-python).
// It speaks the same plain JSON protocol internal/embed/local.go's
// localProvider calls: GET / for a health check, POST /embed with
// {"texts": [...], "mode": "query"|"passage"} returning
// {"embeddings": [[...]]}.
//
// bge-small-en-v1.5 prepends a retrieval-style instruction to queries
// but not to passages, which is the only place "mode" changes behavior.
const EmbeddingScript = `
import json
import sys
from http.server import BaseHTTPRequestHandler, HTTPServer

from sentence_transformers import SentenceTransformer

MODEL_NAME = "BAAI/bge-small-en-v1.5"
QUERY_INSTRUCTION = "Represent this sentence for searching relevant passages: "

model = SentenceTransformer(MODEL_NAME)


class Handler(BaseHTTPRequestHandler):
    def log_message(self, format, *args):
        sys.stderr.write("%s - %s\n" % (self.address_string(), format % args))

    def do_GET(self):
        self.send_response(200)
        self.send_header("Content-Type", "application/json")
        self.end_headers()
        self.wfile.write(json.dumps({"status": "ok", "model": MODEL_NAME}).encode())

    def do_POST(self):
        if self.path != "/embed":
            self.send_response(404)
            self.end_headers()
            return

        length = int(self.headers.get("Content-Length", 0))
        body = json.loads(self.rfile.read(length) or b"{}")
        texts = body.get("texts", [])
        mode = body.get("mode", "passage")

        inputs = texts
        if mode == "query":
            inputs = [QUERY_INSTRUCTION + t for t in texts]

        vectors = model.encode(inputs, normalize_embeddings=True)

        self.send_response(200)
        self.send_header("Content-Type", "application/json")
        self.end_headers()
        self.wfile.write(json.dumps({"embeddings": vectors.tolist()}).encode())


def main():
    port = int(sys.argv[1]) if len(sys.argv) > 1 else 8765
    server = HTTPServer(("127.0.0.1", port), Handler)
    server.serve_forever()


if __name__ == "__main__":
    main()
`
