package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-variant-service/internal/domain"
	"storefront-variant-service/internal/session"
	"storefront-variant-service/internal/store"
	"storefront-variant-service/internal/variant"
)

// VariantServiceName is the fully-qualified gRPC service name.
const VariantServiceName = "storefront.catalog.v1.VariantService"

// VariantServiceServer is the server API for the variant service. Requests
// and responses are google.protobuf.Struct messages shaped like the HTTP
// API's JSON bodies.
type VariantServiceServer interface {
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveVariant(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(VariantServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VariantServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + VariantServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(VariantServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// VariantServiceDesc describes the variant service for grpc.Server.RegisterService.
var VariantServiceDesc = grpc.ServiceDesc{
	ServiceName: VariantServiceName,
	HandlerType: (*VariantServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetProduct", VariantServiceServer.GetProduct),
		unaryHandler("ResolveVariant", VariantServiceServer.ResolveVariant),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/catalog/v1/variant.proto",
}

// RegisterVariantServiceServer registers srv on s.
func RegisterVariantServiceServer(s grpc.ServiceRegistrar, srv VariantServiceServer) {
	s.RegisterService(&VariantServiceDesc, srv)
}

// VariantServiceClient calls the variant service.
type VariantServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVariantServiceClient(cc grpc.ClientConnInterface) *VariantServiceClient {
	return &VariantServiceClient{cc: cc}
}

func (c *VariantServiceClient) GetProduct(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+VariantServiceName+"/GetProduct", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VariantServiceClient) ResolveVariant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+VariantServiceName+"/ResolveVariant", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCHandler implements VariantServiceServer.
type GRPCHandler struct {
	products store.ProductReader
	sessions SessionSource
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(pr store.ProductReader, sessions SessionSource) *GRPCHandler {
	return &GRPCHandler{products: pr, sessions: sessions}
}

var _ VariantServiceServer = (*GRPCHandler)(nil)

// --- Helper: Error Mapping ---
func mapErrorToGrpcStatus(err error, productID int64) error {
	if err == nil {
		return nil
	}
	log.Printf("ERROR: gRPC operation for product ID %d failed: %v", productID, err)

	switch {
	case errors.Is(err, store.ErrProductNotFound):
		return status.Errorf(codes.NotFound, "Product with ID %d not found", productID)
	case errors.Is(err, session.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "Session is not authenticated")
	case errors.Is(err, session.ErrNoStore):
		return status.Error(codes.PermissionDenied, "Session is not bound to a store")
	case errors.Is(err, variant.ErrIdentifierLookupFailed):
		return status.Error(codes.Unavailable, "Could not determine the current store")
	default:
		return status.Errorf(codes.Internal, "Failed to process request for product ID %d", productID)
	}
}

func int64Field(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f <= 0 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return int64(f), nil
}

func selectionField(s *structpb.Struct) (domain.Selection, error) {
	sel := domain.Selection{}
	v, ok := s.GetFields()["selection"]
	if !ok {
		return sel, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, errors.New("selection must be a list")
	}
	for i, item := range list.GetValues() {
		entry := item.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("selection[%d] must be an object", i)
		}
		attrID, err := int64Field(entry, "attribute_id")
		if err != nil {
			return nil, fmt.Errorf("selection[%d]: %w", i, err)
		}
		valueID, err := int64Field(entry, "value_id")
		if err != nil {
			return nil, fmt.Errorf("selection[%d]: %w", i, err)
		}
		sel.Choose(domain.Choice{AttributeID: attrID, ValueID: valueID})
	}
	return sel, nil
}

// toStruct converts a JSON-serialisable value to a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// cookiesFromMetadata reads shopper cookies forwarded in the "cookie" key.
func cookiesFromMetadata(ctx context.Context) []*http.Cookie {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	vals := md.Get("cookie")
	if len(vals) == 0 {
		return nil
	}
	req := &http.Request{Header: http.Header{"Cookie": vals}}
	return req.Cookies()
}

// --- gRPC Methods Implementation ---

func (s *GRPCHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := int64Field(req, "product_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	log.Printf("INFO: Received gRPC GetProduct request for ID: %d", productID)

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, mapErrorToGrpcStatus(err, productID)
	}

	out, err := toStruct(product)
	if err != nil {
		log.Printf("ERROR: Failed to convert product ID %d to struct: %v", productID, err)
		return nil, status.Errorf(codes.Internal, "Failed to process product data for ID %d", productID)
	}
	return out, nil
}

func (s *GRPCHandler) ResolveVariant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := int64Field(req, "product_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sel, err := selectionField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	log.Printf("INFO: Received gRPC ResolveVariant request for product %d with %d choice(s)", productID, len(sel))

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, mapErrorToGrpcStatus(err, productID)
	}

	res, err := variant.Resolve(ctx, s.sessions.Source(cookiesFromMetadata(ctx)), product, sel)
	if err != nil {
		return nil, mapErrorToGrpcStatus(err, productID)
	}

	out, err := toStruct(newResolveVariantResponse(sel, res))
	if err != nil {
		log.Printf("ERROR: Failed to convert resolution for product ID %d to struct: %v", productID, err)
		return nil, status.Errorf(codes.Internal, "Failed to process resolution for product ID %d", productID)
	}
	return out, nil
}
